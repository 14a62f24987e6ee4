package main

import (
	"flag"
	"log"
	"net/http/cgi"

	"git.unix.lgbt/diamondburned/sigview"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/handler"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", configPath, "YAML config file")
	flag.Parse()
}

func main() {
	cfg, err := sigview.LoadConfig(configPath)
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	// Each CGI request is its own process, so the cache is only read. It is
	// filled with sigview-cache import.
	cache, err := sigview.OpenCache(cfg.Cache, false)
	if err != nil {
		log.Fatalln("failed to open cache:", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	l := sigview.NewLoader(cfg, cache)
	l.ReadOnly = true

	if err := cgi.Serve(handler.New(cfg, l)); err != nil {
		log.Println("failed to serve:", err)
	}
}
