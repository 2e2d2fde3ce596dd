// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattermost/janus-exporter/service"
	"github.com/mattermost/janus-exporter/service/auth"
)

func main() {
	var configPath string
	var password string
	flag.StringVar(&configPath, "config", "config/config.toml", "Path to the configuration file for the janus-exporter service.")
	flag.StringVar(&password, "hash-password", "", "Print the bcrypt hash of the given password, to be used as events_password_hash, and exit.")
	flag.Parse()

	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Fatalf("janus-exporter: failed to hash password: %s", err.Error())
		}
		fmt.Println(hash)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("janus-exporter: failed to load config: %s", err.Error())
	}

	if err := cfg.IsValid(); err != nil {
		log.Fatalf("janus-exporter: failed to validate config: %s", err.Error())
	}

	service, err := service.New(cfg)
	if err != nil {
		log.Fatalf("janus-exporter: failed to create service: %s", err.Error())
	}

	if err := service.Start(); err != nil {
		log.Fatalf("janus-exporter: failed to start service: %s", err.Error())
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := service.Stop(); err != nil {
		log.Fatalf("janus-exporter: failed to stop service: %s", err.Error())
	}
}
