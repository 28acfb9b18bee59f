package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SimantoR/pos-printer/adapter"
	"github.com/SimantoR/pos-printer/config"
	"github.com/SimantoR/pos-printer/printer"
	"github.com/SimantoR/pos-printer/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	adapter.SetUSBLogger(log.New(os.Stdout, "[USB] ", log.LstdFlags|log.Lmsgprefix))

	log.Printf("Connecting to printer at %s", cfg.Printer.Interface)
	p, err := printer.New(printer.Options[Item]{
		Printer:   cfg.Printer,
		Receipt:   cfg.Receipt,
		Formatter: FormatItem,
		Header:    cfg.Header,
		Footer:    cfg.Footer,
	})
	if err != nil {
		log.Fatalf("Failed to set up printer: %v", err)
	}
	defer p.Close()

	svr := server.New[Item](p, cfg.ServerAddress)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		svr.Stop()
	}()

	if err := svr.Start(); err != nil {
		p.Close()
		log.Fatalf("Server error: %v", err)
	}
}
