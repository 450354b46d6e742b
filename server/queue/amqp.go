/******************************************************************************
 *
 *  Description :
 *    RabbitMQ ingress for push events. Off-process business services publish
 *    notification events to a queue; this consumer decodes them and hands
 *    them to the broker's push service.
 *
 *****************************************************************************/
package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

const defaultQueueName = "emshop.push"

// Notifier is the slice of the push service the consumer needs.
type Notifier interface {
	OrderStatus(userID, orderID int64, status, message string)
	StockUpdate(productID int64, stock int)
	PriceUpdate(productID int64, price float64)
	Promotion(promotionID int64, title, description string, startTime, endTime int64)
	SystemNotice(title, content, level string, targetUsers []int64)
}

// pushEvent is the wire format of one queued notification.
type pushEvent struct {
	Event       string  `json:"event"`
	UserID      int64   `json:"user_id"`
	OrderID     int64   `json:"order_id"`
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	ProductID   int64   `json:"product_id"`
	Stock       int     `json:"stock"`
	Price       float64 `json:"price"`
	PromotionID int64   `json:"promotion_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartTime   int64   `json:"start_time"`
	EndTime     int64   `json:"end_time"`
	Content     string  `json:"content"`
	Level       string  `json:"level"`
	TargetUsers []int64 `json:"target_users"`
}

// Consumer drains push events from a RabbitMQ queue.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	notifier Notifier
	msgs     <-chan amqp.Delivery
	done     chan struct{}
}

// NewConsumer dials the broker and declares the queue. queueName may be
// empty to use the default.
func NewConsumer(url, queueName string, notifier Notifier) (*Consumer, error) {
	if queueName == "" {
		queueName = defaultQueueName
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err = channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	msgs, err := channel.Consume(queueName, "", true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}

	logs.Info.Println("queue: consuming push events from", queueName)
	return &Consumer{
		conn:     conn,
		channel:  channel,
		notifier: notifier,
		msgs:     msgs,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the consume loop.
func (c *Consumer) Start() {
	go func() {
		defer close(c.done)
		for d := range c.msgs {
			c.handle(d.Body)
		}
	}()
}

// Close shuts the connection down and waits for the loop to drain.
func (c *Consumer) Close() {
	c.conn.Close()
	<-c.done
	logs.Info.Println("queue: consumer stopped")
}

func (c *Consumer) handle(body []byte) {
	var ev pushEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logs.Warn.Println("queue: dropping malformed event:", err)
		return
	}

	switch ev.Event {
	case "order_status":
		c.notifier.OrderStatus(ev.UserID, ev.OrderID, ev.Status, ev.Message)
	case "stock_update":
		c.notifier.StockUpdate(ev.ProductID, ev.Stock)
	case "price_update":
		c.notifier.PriceUpdate(ev.ProductID, ev.Price)
	case "promotion":
		c.notifier.Promotion(ev.PromotionID, ev.Title, ev.Description, ev.StartTime, ev.EndTime)
	case "system_notice":
		c.notifier.SystemNotice(ev.Title, ev.Content, ev.Level, ev.TargetUsers)
	default:
		logs.Warn.Println("queue: dropping event of unknown kind:", ev.Event)
	}
}
