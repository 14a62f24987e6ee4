package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"git.unix.lgbt/diamondburned/sigview"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/handler"
)

var (
	configPath string
	cachePath  string
	backend    string
)

func init() {
	p := func(v ...interface{}) { fmt.Fprintln(flag.CommandLine.Output(), v...) }
	flag.Usage = func() {
		p("Usage:")
		p("  sigview-http [-config file] [-cache path] [-backend badger|bolt] [http address]")
		p("")
		p("Flags:")
		flag.PrintDefaults()
	}

	flag.StringVar(&configPath, "config", configPath, "YAML config file")
	flag.StringVar(&cachePath, "cache", cachePath, "blob cache path, empty to not cache")
	flag.StringVar(&backend, "backend", backend, "blob cache backend (badger or bolt)")
	flag.Parse()
}

func main() {
	cfg, err := sigview.LoadConfig(configPath)
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	if cachePath != "" {
		cfg.Cache.Path = cachePath
	}
	if backend != "" {
		cfg.Cache.Backend = backend
	}
	if listen := flag.Arg(0); listen != "" {
		cfg.Listen = listen
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalln("invalid flags:", err)
	}

	cache, err := sigview.OpenCache(cfg.Cache, true)
	if err != nil {
		log.Fatalln("failed to open cache:", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	h := handler.New(cfg, sigview.NewLoader(cfg, cache))

	log.Println("listening at", cfg.Listen)

	if err := http.ListenAndServe(cfg.Listen, h); err != nil {
		log.Println("failed to serve:", err)
	}
}
