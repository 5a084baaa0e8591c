package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"aidchain/config"
	"aidchain/internal/db"
	"aidchain/internal/errs"
	"aidchain/internal/expense"
	"aidchain/internal/rabbitmq"
	"aidchain/internal/soroban"
	"aidchain/internal/stellar"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer drains the reconcile queue and resumes each expense
// attempt from whatever status it stalled in.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	expenses *expense.Manager
	cfg      *config.ReconcilerConfig
	log      *logrus.Logger
}

func NewConsumer(cfg *config.ReconcilerConfig, expenses *expense.Manager, log *logrus.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	consumer := &Consumer{
		conn:     conn,
		channel:  ch,
		expenses: expenses,
		cfg:      cfg,
		log:      log,
	}

	if err := consumer.setup(); err != nil {
		consumer.Close()
		return nil, err
	}

	return consumer, nil
}

func (c *Consumer) setup() error {
	err := c.channel.ExchangeDeclare(
		c.cfg.ExchangeName,
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

	q, err := c.channel.QueueDeclare(
		c.cfg.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	if err := c.channel.QueueBind(
		q.Name,
		c.cfg.RoutingKey,
		c.cfg.ExchangeName,
		false,
		nil,
	); err != nil {
		return err
	}

	// One attempt at a time: a resume can submit a contract call,
	// and parallel resumes of the same campaign would race on the
	// chain link.
	return c.channel.Qos(1, 0, false)
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Consumer) handleMessage(ctx context.Context, delivery amqp.Delivery) {
	var msg rabbitmq.ExpenseRabbitMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		c.log.Errorf("Failed to unmarshal expense message: %v", err)
		delivery.Nack(false, false)
		return
	}

	if err := c.expenses.Resume(ctx, msg.ID); err != nil {
		c.log.WithFields(logrus.Fields{
			"record": msg.ID,
			"error":  err.Error(),
		}).Error("Failed to resume expense attempt")
		// Requeue only when the outcome is unknown. A definitive
		// failure would come back identical on every redelivery and,
		// with Qos(1), block the queue behind it; the producer sweep
		// re-enqueues the row anyway while it stays non-terminal.
		if errs.IsRetryable(err) {
			delivery.Nack(false, true)
			return
		}
		delivery.Ack(false)
		return
	}

	delivery.Ack(false)
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.cfg.QueueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	c.log.Info("Starting expense reconciler consumer")

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				c.log.Warn("Delivery channel closed")
				return nil
			}
			c.handleMessage(ctx, delivery)
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

	ledger := stellar.NewClient(cfg.HorizonURL, nil, cfg.LedgerMaxInflight)
	payer := stellar.NewSubmitter(ledger, log)

	contract, err := soroban.NewClient(cfg.SorobanRPCURL, cfg.ContractID, log)
	if err != nil {
		log.Fatalf("Failed to create contract client: %v", err)
	}

	expenses := expense.NewManager(database, payer, contract, log)

	consumer, err := NewConsumer(cfg, expenses, log)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down consumer...")
		cancel()
	}()

	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Consumer error: %v", err)
	}
}
