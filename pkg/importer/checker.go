package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Checker periodically verifies that the source of every imported dataset is
// still reachable: HEAD requests for URLs, stat for local files.
type Checker struct {
	sources  *DatasetDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// NewChecker creates a Checker that will verify dataset sources every interval.
func NewChecker(sources *DatasetDB, logger *slog.Logger, interval time.Duration) *Checker {
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start runs an immediate check then repeats every interval until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll checks every dataset source and persists the result. Datasets
// imported from stdin have no source and are skipped.
func (c *Checker) CheckAll(ctx context.Context) {
	sources, err := c.sources.ListDatasets(ctx)
	if err != nil {
		c.logger.Error("source check: cannot list datasets", "error", err)
		return
	}
	if len(sources) == 0 {
		return
	}

	var ok, failed int
	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}

		if src.Source == "" {
			continue
		}
		status, checkErr := c.checkOne(ctx, src.Source)
		errMsg := ""
		if checkErr != nil {
			errMsg = checkErr.Error()
		}

		if err := c.sources.UpdateCheck(src.ID, status, errMsg); err != nil {
			c.logger.Error("source check: update failed", "dataset", src.ID, "error", err)
		}

		if status >= 200 && status < 400 {
			ok++
		} else {
			failed++
			c.logger.Warn("source inaccessible",
				"dataset", src.ID,
				"name", src.Name,
				"source", src.Source,
				"status", status,
				"error", errMsg,
			)
		}
	}

	if ok+failed > 0 {
		c.logger.Info("source check complete", "total", ok+failed, "ok", ok, "failed", failed)
	}
}

// checkOne returns an HTTP-style status for a source: the HEAD status for
// URLs, 200 or 404 for files. On network or file system error, status is 0.
func (c *Checker) checkOne(ctx context.Context, source string) (int, error) {
	if !IsURL(source) {
		_, err := os.Stat(source)
		switch {
		case err == nil:
			return http.StatusOK, nil
		case errors.Is(err, fs.ErrNotExist):
			return http.StatusNotFound, err
		}
		return 0, err
	}
	url := source

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
