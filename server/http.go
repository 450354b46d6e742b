/******************************************************************************
 *
 *  Description :
 *
 *  Web server initialization and graceful shutdown.
 *
 *****************************************************************************/

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// listenAndServe runs the HTTP server until a value arrives on stop, then
// shuts it down gracefully. TLS is enabled by providing both certificate and
// key files.
func listenAndServe(addr string, mux *http.ServeMux, certFile, keyFile string, stop <-chan bool) error {
	shuttingDown := false
	httpdone := make(chan bool)

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			logs.Info.Printf("Listening for wss:// connections at [%s]", addr)
			err = server.ListenAndServeTLS(certFile, keyFile)
		} else {
			logs.Info.Printf("Listening for ws:// connections at [%s]", addr)
			err = server.ListenAndServe()
		}
		if !shuttingDown && !errors.Is(err, http.ErrServerClosed) {
			logs.Err.Println("http: server failed:", err)
		}
		httpdone <- true
	}()

	<-stop
	shuttingDown = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logs.Err.Println("http: shutdown:", err)
	}
	<-httpdone
	logs.Info.Println("HTTP server stopped")
	return nil
}
