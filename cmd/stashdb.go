package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stashdb/stashdb/pkg/catalog"
	"github.com/stashdb/stashdb/pkg/cursor"
	"github.com/stashdb/stashdb/pkg/server"
)

func main() {
	// Command line flags
	var (
		port          = flag.String("port", "8080", "Server port")
		dataFile      = flag.String("data-file", "stashdb_catalog"+catalog.FileExtension, "Catalog file path for persistence")
		dbName        = flag.String("db", "stash", "Database name used in namespaces")
		cursorTimeout = flag.Duration("cursor-timeout", 10*time.Minute, "Idle timeout before a cursor is reaped")
		maxCursors    = flag.Int("max-cursors", 10000, "Maximum number of open cursors. Set to 0 for unlimited.")
		showHelp      = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nstashdb is an in-memory collection catalog with a cursor-based command API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # Start with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -db inventory         # Custom port and database name\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -cursor-timeout 1m               # Reap idle cursors after a minute\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nNote:\n")
		fmt.Fprintf(os.Stderr, "  Catalog state is saved to -data-file on graceful shutdown and loaded on start.\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	srv := server.NewServer(
		server.WithCatalogOptions(catalog.WithDatabaseName(*dbName)),
		server.WithCursorOptions(
			cursor.WithIdleTimeout(*cursorTimeout),
			cursor.WithMaxOpenCursors(*maxCursors),
		),
	)

	// Load catalog state from file
	log.Printf("INFO: Loading catalog from: %s", *dataFile)
	srv.InitCatalog(*dataFile)

	srv.StartBackgroundWorkers()
	defer srv.StopBackgroundWorkers()

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: srv.Router(),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting stashdb server on :%s", *port)
		log.Printf("API endpoints available at http://localhost:%s", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Save catalog before shutdown
	log.Printf("INFO: Saving catalog to: %s", *dataFile)
	srv.SaveCatalog(*dataFile)

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
