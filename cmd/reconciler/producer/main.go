package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aidchain/config"
	"aidchain/internal/db"
	"aidchain/internal/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Producer sweeps the expense table for attempts stuck between the
// payment and the final record, and enqueues them for the consumer to
// resume. The sweep is the safety net behind the non-transactional
// pay -> mirror -> persist sequence.
type Producer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	db      *db.Database
	cfg     *config.ReconcilerConfig
	log     *logrus.Logger
}

func NewProducer(cfg *config.ReconcilerConfig, database *db.Database, log *logrus.Logger) (*Producer, error) {
	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	producer := &Producer{
		conn:    conn,
		channel: ch,
		db:      database,
		cfg:     cfg,
		log:     log,
	}

	if err := producer.setup(); err != nil {
		producer.Close()
		return nil, err
	}

	return producer, nil
}

func (p *Producer) setup() error {
	err := p.channel.ExchangeDeclare(
		p.cfg.ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	q, err := p.channel.QueueDeclare(
		p.cfg.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	return p.channel.QueueBind(
		q.Name,
		p.cfg.RoutingKey,
		p.cfg.ExchangeName,
		false,
		nil,
	)
}

func (p *Producer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Producer) produceStalledExpenses(ctx context.Context) error {
	stalled, err := p.db.GetStalledExpenses(ctx, p.cfg.StallAfter)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, record := range stalled {
		msg := rabbitmq.ExpenseRabbitMessage{
			ID: record.ID,
		}

		body, err := json.Marshal(msg)
		if err != nil {
			p.log.Errorf("Failed to marshal expense message: %v", err)
			continue
		}

		err = p.channel.PublishWithContext(
			pubCtx,
			p.cfg.ExchangeName,
			p.cfg.RoutingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				DeliveryMode: amqp.Persistent,
				ContentType:  "application/json",
				Body:         body,
				Timestamp:    time.Now(),
			})

		if err != nil {
			p.log.Errorf("Failed to publish expense message: %v", err)
			continue
		}

		p.log.WithFields(logrus.Fields{
			"record": record.ID,
			"status": record.Status,
		}).Info("Enqueued stalled expense attempt")
	}

	return nil
}

func (p *Producer) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.CheckInterval)
	defer ticker.Stop()

	p.log.Info("Starting expense reconciler producer")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.produceStalledExpenses(ctx); err != nil {
				p.log.Errorf("Error producing stalled expenses: %v", err)
			}
		}
	}
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadReconcilerConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.NewDatabase(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		Username: cfg.DBUser,
		Password: cfg.DBPassword,
		Debug:    cfg.DBDebug,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	producer, err := NewProducer(cfg, database, log)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down producer...")
		cancel()
	}()

	if err := producer.Start(ctx); err != nil {
		log.Fatalf("Producer error: %v", err)
	}
}
