// Package netwatch samples the guest's established TCP connections for a
// fixed window and writes an aggregated JSON report.
package netwatch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSampleInterval is the pause between netstat samples.
const DefaultSampleInterval = 5 * time.Second

// Connection is one observed established TCP connection.
type Connection struct {
	Proto  string `json:"proto"`
	Local  string `json:"local"`
	Remote string `json:"remote"`
	PID    int    `json:"pid"`
}

// Report is the aggregated observation window.
type Report struct {
	Started     time.Time    `json:"started"`
	Finished    time.Time    `json:"finished"`
	Samples     int          `json:"samples"`
	Connections []Connection `json:"connections"`
}

// Observer collects connection samples via netstat.
type Observer struct {
	SampleInterval time.Duration

	log *logrus.Logger

	// sample returns raw netstat -ano output; replaced by tests.
	sample func() ([]byte, error)
}

// New returns an observer sampling at the default interval.
func New(log *logrus.Logger) *Observer {
	return &Observer{
		SampleInterval: DefaultSampleInterval,
		log:            log,
		sample: func() ([]byte, error) {
			return exec.Command("netstat", "-ano").Output()
		},
	}
}

// Observe samples until d elapses, deduplicating connections across samples,
// and writes the report to reportPath. A zero or negative duration is an
// instant no-op: no sample is taken and no report written. Individual sample
// failures are logged and skipped.
func (o *Observer) Observe(d time.Duration, reportPath string) error {
	if d <= 0 {
		return nil
	}

	report := Report{Started: time.Now()}
	deadline := report.Started.Add(d)
	seen := map[string]bool{}

	for {
		out, err := o.sample()
		if err != nil {
			o.log.WithError(err).Warn("netstat sample failed")
		} else {
			for _, conn := range parseNetstat(out) {
				key := fmt.Sprintf("%s|%s|%s|%d", conn.Proto, conn.Local, conn.Remote, conn.PID)
				if !seen[key] {
					seen[key] = true
					report.Connections = append(report.Connections, conn)
				}
			}
		}
		report.Samples++

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining < o.SampleInterval {
			time.Sleep(remaining)
		} else {
			time.Sleep(o.SampleInterval)
		}
	}
	report.Finished = time.Now()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode connection report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("write connection report: %w", err)
	}
	o.log.WithFields(logrus.Fields{
		"connections": len(report.Connections),
		"samples":     report.Samples,
	}).Info("network observation complete")
	return nil
}

// parseNetstat extracts established TCP rows from netstat -ano output.
// Expected row shape: proto, local address, foreign address, state, pid.
func parseNetstat(out []byte) []Connection {
	var conns []Connection
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 5 {
			continue
		}
		if !strings.EqualFold(fields[0], "TCP") || !strings.EqualFold(fields[3], "ESTABLISHED") {
			continue
		}
		pid, err := strconv.Atoi(fields[4])
		if err != nil {
			continue
		}
		conns = append(conns, Connection{
			Proto:  strings.ToUpper(fields[0]),
			Local:  fields[1],
			Remote: fields[2],
			PID:    pid,
		})
	}
	return conns
}
