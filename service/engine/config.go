// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package engine

import (
	"fmt"
)

type Config struct {
	// UserSessionMaxMinutes caps the user session durations sampled into the
	// histogram. Longer sessions are recorded in the last bucket.
	UserSessionMaxMinutes int `toml:"user_session_max_minutes"`
	// UserSessionBucketWidth is the width, in minutes, of the user session
	// duration histogram buckets.
	UserSessionBucketWidth int `toml:"user_session_bucket_width"`
	// AnomalyLogRate is the maximum number of anomalies logged per second.
	AnomalyLogRate float64 `toml:"anomaly_log_rate"`
	// AnomalyLogBurst is the number of anomalies that can be logged at once
	// before the rate applies.
	AnomalyLogBurst int `toml:"anomaly_log_burst"`
}

func (c Config) IsValid() error {
	if c.UserSessionMaxMinutes <= 0 {
		return fmt.Errorf("invalid UserSessionMaxMinutes value: should be greater than zero")
	}

	if c.UserSessionBucketWidth <= 0 || c.UserSessionBucketWidth > c.UserSessionMaxMinutes {
		return fmt.Errorf("invalid UserSessionBucketWidth value: should be in the range [1, %d]", c.UserSessionMaxMinutes)
	}

	if c.AnomalyLogRate <= 0 {
		return fmt.Errorf("invalid AnomalyLogRate value: should be greater than zero")
	}

	if c.AnomalyLogBurst <= 0 {
		return fmt.Errorf("invalid AnomalyLogBurst value: should be greater than zero")
	}

	return nil
}

func (c *Config) SetDefaults() {
	c.UserSessionMaxMinutes = 60
	c.UserSessionBucketWidth = 10
	c.AnomalyLogRate = 10
	c.AnomalyLogBurst = 50
}

// UserSessionBuckets returns the linear histogram buckets covering
// [0, UserSessionMaxMinutes]. The cap is always included as last bucket.
func (c Config) UserSessionBuckets() []float64 {
	if c.UserSessionBucketWidth <= 0 {
		return nil
	}
	var buckets []float64
	for b := 0; b < c.UserSessionMaxMinutes; b += c.UserSessionBucketWidth {
		buckets = append(buckets, float64(b))
	}
	return append(buckets, float64(c.UserSessionMaxMinutes))
}
