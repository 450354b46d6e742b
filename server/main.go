/******************************************************************************
 *
 *  Description :
 *
 *  Setup & initialization of the emshop real-time broker.
 *
 *****************************************************************************/

package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tinode/jsonco"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/exec/dbexec"
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/queue"
)

type configType struct {
	// Address and port to listen on, e.g. ":8081".
	Listen string `json:"listen"`
	// Path of the websocket endpoint.
	WSPath string `json:"ws_path"`
	// Path of the Prometheus scrape endpoint, "-" to disable.
	MetricsPath string `json:"metrics_path"`
	// Seconds without inbound traffic before a connection is evicted.
	IdleTimeout int `json:"idle_timeout"`
	// Seconds between statistics broadcasts.
	StatsInterval int `json:"stats_interval"`
	// Seconds between defensive prunes of the subscription index.
	PruneInterval int `json:"prune_interval"`
	// Handler worker pool sizing.
	WorkerPoolSize   int `json:"worker_pool_size"`
	WorkerQueueDepth int `json:"worker_queue_depth"`
	// Largest accepted inbound frame, bytes.
	MaxMessageSize int64 `json:"max_message_size"`
	// Snowflake worker id, 0..1023; distinguishes brokers sharing a DB.
	WorkerID int `json:"worker_id"`
	// DSN of the MySQL database hosting the emshop business core.
	MySQLDSN string `json:"mysql_dsn"`
	// Optional RabbitMQ ingress for push events from business services.
	AMQP struct {
		URL   string `json:"url"`
		Queue string `json:"queue"`
	} `json:"amqp"`
	TLS struct {
		CertFile string `json:"cert_file"`
		KeyFile  string `json:"key_file"`
	} `json:"tls"`
}

func main() {
	logs.Init(os.Stderr, log.LstdFlags|log.Lmicroseconds)

	configfile := flag.String("config", "./emshop.conf", "Path to config file.")
	listenOn := flag.String("listen", "", "Override address and port to listen on.")
	flag.Parse()

	logs.Info.Printf("Using config from '%s'", *configfile)

	var config configType
	if file, err := os.Open(*configfile); err != nil {
		logs.Err.Fatal("Failed to read config file:", err)
	} else {
		jr := jsonco.New(file)
		if err = json.NewDecoder(jr).Decode(&config); err != nil {
			logs.Err.Fatal("Failed to parse config file:", err)
		}
		file.Close()
	}
	if *listenOn != "" {
		config.Listen = *listenOn
	}
	if config.Listen == "" {
		config.Listen = ":8081"
	}
	if config.WSPath == "" {
		config.WSPath = "/ws"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}

	if config.MySQLDSN == "" {
		logs.Err.Fatal("mysql_dsn is not set: the broker cannot reach the business core")
	}
	executor, err := dbexec.Open(config.MySQLDSN)
	if err != nil {
		logs.Err.Fatal("Failed to connect to the business core:", err)
	}
	defer executor.Close()

	broker, err := NewBroker(executor, BrokerConfig{
		IdleTimeout:      time.Duration(config.IdleTimeout) * time.Second,
		StatsInterval:    time.Duration(config.StatsInterval) * time.Second,
		PruneInterval:    time.Duration(config.PruneInterval) * time.Second,
		WorkerPoolSize:   config.WorkerPoolSize,
		WorkerQueueDepth: config.WorkerQueueDepth,
		MaxMessageSize:   config.MaxMessageSize,
		WorkerID:         config.WorkerID,
	})
	if err != nil {
		logs.Err.Fatal("Failed to initialize broker:", err)
	}
	broker.Start()

	var consumer *queue.Consumer
	if config.AMQP.URL != "" {
		consumer, err = queue.NewConsumer(config.AMQP.URL, config.AMQP.Queue, broker.Push())
		if err != nil {
			logs.Err.Fatal("Failed to connect to the push queue:", err)
		}
		consumer.Start()
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.WSPath, broker.serveWebSocket)
	statsInit(mux, config.MetricsPath, broker)

	if err = listenAndServe(config.Listen, mux, config.TLS.CertFile, config.TLS.KeyFile, signalHandler()); err != nil {
		logs.Err.Fatal(err)
	}

	if consumer != nil {
		consumer.Close()
	}
	broker.Stop()
	logs.Info.Println("Server shut down")
}
