// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package logger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

const (
	queueSize          = 1000
	defaultFileMaxSize = 100
)

func getLevels(level string) []mlog.Level {
	var levels []mlog.Level
	for _, l := range mlog.StdAll {
		levels = append(levels, l)
		if l.Name == strings.ToLower(level) {
			break
		}
	}
	return levels
}

type fileOptions struct {
	Filename   string `json:"filename"`
	MaxSize    int    `json:"max_size"`
	MaxAge     int    `json:"max_age"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

type plainFormatOptions struct {
	Delim        string `json:"delim"`
	MinLevelLen  int    `json:"min_level_len"`
	MinMsgLen    int    `json:"min_msg_len"`
	EnableColor  bool   `json:"enable_color"`
	EnableCaller bool   `json:"enable_caller"`
}

// newTarget builds a target of the given type writing entries up to level.
func newTarget(targetType, level string, jsonFormat, color bool, options any) (mlog.TargetCfg, error) {
	opts, err := json.Marshal(options)
	if err != nil {
		return mlog.TargetCfg{}, fmt.Errorf("failed to encode target options: %w", err)
	}

	format := "json"
	formatOpts := []byte(`{"enable_caller": true}`)
	if !jsonFormat {
		format = "plain"
		formatOpts, err = json.Marshal(plainFormatOptions{
			Delim:        " ",
			MinLevelLen:  5,
			MinMsgLen:    45,
			EnableColor:  color,
			EnableCaller: true,
		})
		if err != nil {
			return mlog.TargetCfg{}, fmt.Errorf("failed to encode format options: %w", err)
		}
	}

	return mlog.TargetCfg{
		Type:          targetType,
		Levels:        getLevels(level),
		Options:       json.RawMessage(opts),
		Format:        format,
		FormatOptions: json.RawMessage(formatOpts),
		MaxQueueSize:  queueSize,
	}, nil
}

func targetsConfig(config Config) (mlog.LoggerConfiguration, error) {
	cfg := mlog.LoggerConfiguration{}

	if config.EnableConsole {
		target, err := newTarget("console", config.ConsoleLevel, config.ConsoleJSON, config.EnableColor,
			map[string]string{"out": "stdout"})
		if err != nil {
			return nil, err
		}
		cfg["_defConsole"] = target
	}

	if config.EnableFile {
		maxSize := config.FileMaxSizeMB
		if maxSize == 0 {
			maxSize = defaultFileMaxSize
		}
		target, err := newTarget("file", config.FileLevel, config.FileJSON, false, fileOptions{
			Filename:   config.FileLocation,
			MaxSize:    maxSize,
			MaxBackups: config.FileMaxBackups,
			Compress:   config.FileCompress,
		})
		if err != nil {
			return nil, err
		}
		cfg["_defFile"] = target
	}

	return cfg, nil
}

// New returns a newly created and initialized logger with the given cfg.
func New(config Config) (*mlog.Logger, error) {
	if err := config.IsValid(); err != nil {
		return nil, err
	}

	cfg, err := targetsConfig(config)
	if err != nil {
		return nil, err
	}

	logger, err := mlog.NewLogger()
	if err != nil {
		return nil, err
	}

	if err := logger.ConfigureTargets(cfg, nil); err != nil {
		return nil, err
	}

	return logger, nil
}
