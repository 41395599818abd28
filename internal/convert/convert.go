// Package convert adapts the external LibreOffice conversion engine. It
// owns stale-instance cleanup, executable discovery, headless invocation,
// and output polling as one unit; the engine is treated as an unreliable
// dependency with single-attempt semantics per call.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/config"
)

// Conversion failure taxonomy. Each is fatal for the attempt; the caller
// may retry by issuing a new request.
var (
	// ErrNotFound means no conversion engine executable is discoverable.
	ErrNotFound = errors.New("conversion engine not found")
	// ErrTimeout means the conversion exceeded its wall-clock ceiling.
	ErrTimeout = errors.New("conversion timed out")
	// ErrFailed means a non-zero exit or missing/empty output.
	ErrFailed = errors.New("conversion failed")
)

// staleProcessNames are process names of conversion engine instances that
// may be left over from a previous run. A stale instance holds the user
// profile lock and hangs every later invocation on the same host.
var staleProcessNames = map[string]bool{
	"soffice":     true,
	"soffice.bin": true,
	"soffice.exe": true,
}

const (
	killTimeout  = 3 * time.Second
	pollAttempts = 20
	pollInterval = 500 * time.Millisecond
)

// Converter invokes the external document conversion engine.
type Converter struct {
	timeout      time.Duration
	installPaths []string
	binaries     []string
	searchDirs   []string
	pollAttempts int
	pollInterval time.Duration
	logger       *zap.Logger
}

// New creates a converter from configuration. Explicitly configured engine
// paths are tried first, then a PATH lookup, then the conventional install
// directories for the platform.
func New(cfg *config.Config, logger *zap.Logger) *Converter {
	c := &Converter{
		timeout:      cfg.Certificate.ConverterTimeout,
		installPaths: cfg.Certificate.ConverterPaths,
		pollAttempts: pollAttempts,
		pollInterval: pollInterval,
		logger:       logger,
	}

	if runtime.GOOS == "windows" {
		c.binaries = []string{"soffice.exe"}
		c.searchDirs = []string{
			`C:\Program Files\LibreOffice\program`,
			`C:\Program Files (x86)\LibreOffice\program`,
		}
	} else {
		c.binaries = []string{"soffice", "libreoffice"}
		c.searchDirs = []string{
			"/usr/bin",
			"/usr/local/bin",
			"/opt/libreoffice/program",
			"/Applications/LibreOffice.app/Contents/MacOS",
		}
	}

	return c
}

// Convert turns the intermediate document at inputPath into PDF bytes. The
// generated PDF is written next to the input and removed before returning.
func (c *Converter) Convert(inputPath string) ([]byte, error) {
	c.killStaleInstances()

	engine, err := c.findExecutable()
	if err != nil {
		return nil, err
	}

	outDir := filepath.Dir(inputPath)

	c.logger.Debug("Invoking conversion engine",
		zap.String("engine", engine),
		zap.String("input", inputPath),
	)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, engine,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	)
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: engine exited with error: %v: %s", ErrFailed, err, strings.TrimSpace(string(output)))
	}

	// Output file creation is not synchronous with process exit on some
	// platforms, so poll before declaring failure.
	pdfPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".pdf"
	if err := c.waitForOutput(pdfPath); err != nil {
		return nil, fmt.Errorf("%w: output never appeared at %s: %s", ErrFailed, pdfPath, strings.TrimSpace(string(output)))
	}
	defer os.Remove(pdfPath)

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read output: %v", ErrFailed, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: engine produced an empty document", ErrFailed)
	}

	c.logger.Debug("Conversion complete", zap.Int("pdf_bytes", len(pdf)))

	return pdf, nil
}

// killStaleInstances terminates leftover conversion engine processes.
// Best effort: a failure to terminate is logged, never escalated.
func (c *Converter) killStaleInstances() {
	ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		c.logger.Warn("Failed to enumerate processes for stale engine cleanup", zap.Error(err))
		return
	}

	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !staleProcessNames[name] {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			c.logger.Warn("Failed to terminate stale conversion engine instance",
				zap.Int32("pid", p.Pid),
				zap.Error(err),
			)
			continue
		}
		c.logger.Info("Terminated stale conversion engine instance", zap.Int32("pid", p.Pid))
	}
}

// findExecutable locates the conversion engine: explicitly configured
// paths, then PATH, then conventional install directories. The returned
// error lists every attempted location for diagnosis.
func (c *Converter) findExecutable() (string, error) {
	var attempted []string

	for _, p := range c.installPaths {
		attempted = append(attempted, p)
		if fileExists(p) {
			return p, nil
		}
	}

	for _, bin := range c.binaries {
		attempted = append(attempted, bin+" (PATH)")
		if found, err := exec.LookPath(bin); err == nil {
			return found, nil
		}
	}

	for _, dir := range c.searchDirs {
		for _, bin := range c.binaries {
			p := filepath.Join(dir, bin)
			attempted = append(attempted, p)
			if fileExists(p) {
				return p, nil
			}
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(attempted, ", "))
}

// waitForOutput polls for the output file's appearance.
func (c *Converter) waitForOutput(path string) error {
	for i := 0; i < c.pollAttempts; i++ {
		if fileExists(path) {
			return nil
		}
		time.Sleep(c.pollInterval)
	}
	return fmt.Errorf("output file not found after %d attempts", c.pollAttempts)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
