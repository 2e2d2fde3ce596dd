// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"errors"
	"net/http"
	"time"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/prometheus/procfs"
)

const cpuSampleDuration = time.Second

type SystemInfo struct {
	// CPULoad is the fraction of non idle host CPU time over the sample.
	CPULoad float64 `json:"cpu_load"`
	// ResidentMemory is the exporter's resident set size in bytes.
	ResidentMemory int `json:"resident_memory"`
}

func cpuBusy(st procfs.CPUStat) (busy, total float64) {
	total = st.User + st.Nice + st.System + st.Idle + st.Iowait + st.IRQ + st.SoftIRQ + st.Steal
	return total - st.Idle - st.Iowait, total
}

func (s *Service) sampleSystem() (SystemInfo, error) {
	var info SystemInfo
	if s.procFS == nil {
		return info, errors.New("procfs is not available")
	}

	st1, err := s.procFS.Stat()
	if err != nil {
		return info, err
	}
	// We take a one second sample.
	time.Sleep(cpuSampleDuration)
	st2, err := s.procFS.Stat()
	if err != nil {
		return info, err
	}

	busy1, total1 := cpuBusy(st1.CPUTotal)
	busy2, total2 := cpuBusy(st2.CPUTotal)
	if diff := total2 - total1; diff > 0 {
		info.CPULoad = (busy2 - busy1) / diff
	}

	proc, err := s.procFS.Self()
	if err != nil {
		return info, err
	}
	pst, err := proc.Stat()
	if err != nil {
		return info, err
	}
	info.ResidentMemory = pst.ResidentMemory()

	return info, nil
}

func (s *Service) getSystemInfo(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.NotFound(w, req)
		return
	}

	info, err := s.sampleSystem()
	if err != nil {
		s.log.Error("failed to sample system info", mlog.Err(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, info)
}
