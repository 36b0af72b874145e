package Controllers

import (
	"errors"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"TaskManager/Logging"

	"github.com/gofiber/fiber/v2"
)

// LogsController serves the request log written by middleware.RequestLogger
type LogsController struct {
	Path string
	Now  func() time.Time
}

// NewLogsController creates a new LogsController reading path
func NewLogsController(path string) *LogsController {
	return &LogsController{Path: path, Now: time.Now}
}

// LogGroup represents a group of logs by path
type LogGroup struct {
	Path        string                  `json:"path"`
	Method      string                  `json:"method"`
	Count       int                     `json:"count"`
	AvgLatency  float64                 `json:"avg_latency_ms"`
	MinLatency  float64                 `json:"min_latency_ms"`
	MaxLatency  float64                 `json:"max_latency_ms"`
	SuccessRate float64                 `json:"success_rate"`
	Logs        []Logging.RequestRecord `json:"logs"`
}

// LogsResponse represents the response structure for logs API
type LogsResponse struct {
	Groups      []LogGroup `json:"groups"`
	TotalLogs   int        `json:"total_logs"`
	TotalGroups int        `json:"total_groups"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	TotalPages  int        `json:"total_pages"`
	DateFrom    time.Time  `json:"date_from"`
	DateTo      time.Time  `json:"date_to"`
}

// dateRange reads date_from/date_to (YYYY-MM-DD), defaulting to today
func (c *LogsController) dateRange(ctx *fiber.Ctx) (time.Time, time.Time, error) {
	now := c.Now()
	fromStr, toStr := ctx.Query("date_from"), ctx.Query("date_to")
	if fromStr == "" && toStr == "" {
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return from, from.Add(24*time.Hour - time.Nanosecond), nil
	}

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := now
	if fromStr != "" {
		parsed, err := time.Parse(time.DateOnly, fromStr)
		if err != nil {
			return from, to, errors.New("Invalid date_from format. Use YYYY-MM-DD")
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(time.DateOnly, toStr)
		if err != nil {
			return from, to, errors.New("Invalid date_to format. Use YYYY-MM-DD")
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

func (c *LogsController) read(from, to time.Time) ([]Logging.RequestRecord, error) {
	records, err := Logging.ReadRequests(c.Path, from, to)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return records, err
}

func paging(ctx *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}
	return page, pageSize
}

func pageBounds(total, page, pageSize int) (int, int, int) {
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return start, end, (total + pageSize - 1) / pageSize
}

// GetLogs retrieves logs with pagination, date filtering, and grouping
// GET /api/logs
func (c *LogsController) GetLogs(ctx *fiber.Ctx) error {
	from, to, err := c.dateRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	page, pageSize := paging(ctx)

	records, err := c.read(from, to)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to read logs"})
	}
	records = filterRecords(records, ctx.Query("path"), ctx.Query("method"), ctx.Query("status"))
	groups := groupByPath(records)

	start, end, totalPages := pageBounds(len(groups), page, pageSize)
	return ctx.JSON(LogsResponse{
		Groups:      groups[start:end],
		TotalLogs:   len(records),
		TotalGroups: len(groups),
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		DateFrom:    from,
		DateTo:      to,
	})
}

// GetLogsByPath retrieves logs for a specific path, newest first
// GET /api/logs/path/:path
func (c *LogsController) GetLogsByPath(ctx *fiber.Ctx) error {
	path := ctx.Params("path")
	from, to, err := c.dateRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	page, pageSize := paging(ctx)

	records, err := c.read(from, to)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to read logs"})
	}
	records = filterRecords(records, path, "", "")
	sort.Slice(records, func(i, j int) bool {
		return records[i].Time.After(records[j].Time)
	})

	start, end, totalPages := pageBounds(len(records), page, pageSize)
	return ctx.JSON(fiber.Map{
		"logs":        records[start:end],
		"total_logs":  len(records),
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
		"path":        path,
		"date_from":   from,
		"date_to":     to,
	})
}

// GetLogStats returns statistics about logs
// GET /api/logs/stats
func (c *LogsController) GetLogStats(ctx *fiber.Ctx) error {
	from, to, err := c.dateRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	records, err := c.read(from, to)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to read logs"})
	}

	var successful, failed int
	var total, minLatency, maxLatency float64
	methodStats := map[string]int{}
	statusStats := map[int]int{}
	pathStats := map[string]int{}
	for i, r := range records {
		switch {
		case r.Status >= 200 && r.Status < 300:
			successful++
		case r.Status >= 400:
			failed++
		}
		total += r.LatencyMS
		if i == 0 || r.LatencyMS < minLatency {
			minLatency = r.LatencyMS
		}
		maxLatency = max(maxLatency, r.LatencyMS)
		methodStats[r.Method]++
		statusStats[r.Status]++
		pathStats[r.Path]++
	}

	var avg, successRate float64
	if len(records) > 0 {
		avg = total / float64(len(records))
		successRate = float64(successful) / float64(len(records)) * 100
	}

	type pathCount struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	topPaths := make([]pathCount, 0, len(pathStats))
	for p, n := range pathStats {
		topPaths = append(topPaths, pathCount{Path: p, Count: n})
	}
	sort.Slice(topPaths, func(i, j int) bool {
		if topPaths[i].Count != topPaths[j].Count {
			return topPaths[i].Count > topPaths[j].Count
		}
		return topPaths[i].Path < topPaths[j].Path
	})
	if len(topPaths) > 10 {
		topPaths = topPaths[:10]
	}

	return ctx.JSON(fiber.Map{
		"total_requests":      len(records),
		"successful_requests": successful,
		"error_requests":      failed,
		"success_rate":        successRate,
		"avg_latency_ms":      avg,
		"min_latency_ms":      minLatency,
		"max_latency_ms":      maxLatency,
		"method_stats":        methodStats,
		"status_stats":        statusStats,
		"top_paths":           topPaths,
		"date_from":           from,
		"date_to":             to,
	})
}

// filterRecords filters logs by path, method, and status
func filterRecords(records []Logging.RequestRecord, path, method, status string) []Logging.RequestRecord {
	code, codeErr := strconv.Atoi(status)
	filtered := make([]Logging.RequestRecord, 0, len(records))
	for _, r := range records {
		if path != "" && !strings.Contains(strings.ToLower(r.Path), strings.ToLower(path)) {
			continue
		}
		if method != "" && !strings.EqualFold(r.Method, method) {
			continue
		}
		if status != "" && codeErr == nil && r.Status != code {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// groupByPath groups logs by method and path, busiest first
func groupByPath(records []Logging.RequestRecord) []LogGroup {
	index := map[string]int{}
	var groups []LogGroup
	for _, r := range records {
		key := r.Method + " " + r.Path
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, LogGroup{Path: r.Path, Method: r.Method, MinLatency: r.LatencyMS})
		}
		g := &groups[i]
		g.Count++
		g.Logs = append(g.Logs, r)
		g.AvgLatency += (r.LatencyMS - g.AvgLatency) / float64(g.Count)
		g.MinLatency = min(g.MinLatency, r.LatencyMS)
		g.MaxLatency = max(g.MaxLatency, r.LatencyMS)
		success := 0.0
		if r.Status >= 200 && r.Status < 300 {
			success = 1
		}
		g.SuccessRate += (success - g.SuccessRate) / float64(g.Count)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}
