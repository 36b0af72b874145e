package Logging

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"time"
)

// RequestMessage is the message of every line the request middleware writes
const RequestMessage = "http request"

// RequestRecord is one request line as written by the JSON handler
type RequestRecord struct {
	Time      time.Time `json:"time"`
	Msg       string    `json:"msg"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	LatencyMS float64   `json:"latency_ms"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	RequestID string    `json:"request_id"`
	UserID    uint      `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ReadRequests returns the request records in the log file with from <= time <= to.
// Lines that are not JSON request records are skipped.
func ReadRequests(path string, from, to time.Time) ([]RequestRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []RequestRecord
	err = scanLines(f, func(line []byte) {
		var rec RequestRecord
		if json.Unmarshal(line, &rec) != nil || rec.Msg != RequestMessage {
			return
		}
		if rec.Time.Before(from) || rec.Time.After(to) {
			return
		}
		records = append(records, rec)
	})
	return records, err
}

// LineTime extracts the "time" field of a JSON log line
func LineTime(line []byte) (time.Time, bool) {
	var head struct {
		Time time.Time `json:"time"`
	}
	if err := json.Unmarshal(line, &head); err != nil || head.Time.IsZero() {
		return time.Time{}, false
	}
	return head.Time, true
}

func scanLines(r io.Reader, fn func(line []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Bytes(); len(line) > 0 {
			fn(line)
		}
	}
	return scanner.Err()
}
