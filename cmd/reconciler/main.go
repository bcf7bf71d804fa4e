/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/carverauto/energyradar/pkg/config"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/refresh"
)

func main() {
	configPath := flag.String("config", "/etc/energyradar/reconciler.json", "Path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg refresh.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	loggerConfig := cfg.Logging
	if loggerConfig == nil {
		loggerConfig = logger.DefaultConfig()
	}

	svcLogger, err := logger.New(loggerConfig)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	rt, err := refresh.NewDefault(ctx, &cfg, svcLogger)
	if err != nil {
		log.Fatalf("Failed to create reconciler: %v", err) //nolint:gocritic // stop only releases the signal handler
	}
	defer rt.Close()

	if err := rt.Service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		svcLogger.Error().Err(err).Msg("Reconciler stopped with error")
	}

	svcLogger.Info().Msg("Reconciler stopped")
}
