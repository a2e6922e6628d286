// Package provision sequences local staging, payload packaging, VM startup,
// readiness polling, file transfer, and remote extraction into one pipeline.
// Any step failure aborts the remainder and rolls back local staging; guest
// state already created is deliberately left untouched (the guest is treated
// as snapshot-revertible).
package provision

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javanstorm/guestlab/internal/config"
	"github.com/javanstorm/guestlab/internal/guest/archive"
	"github.com/javanstorm/guestlab/internal/timing"
	"github.com/javanstorm/guestlab/pkg/hypervisor"
)

// ErrTimeout is returned when the VM never reports ready within the
// configured deadline.
var ErrTimeout = errors.New("provision: timed out waiting for VM readiness")

const (
	// DefaultPollInterval is how often readiness is probed.
	DefaultPollInterval = 10 * time.Second

	// DefaultPollTimeout is the overall readiness deadline.
	DefaultPollTimeout = 300 * time.Second
)

// Provisioner runs the provisioning pipeline for one analysis config.
type Provisioner struct {
	Stager       *Stager
	PollInterval time.Duration
	PollTimeout  time.Duration

	log *logrus.Logger

	// newDriver is the driver factory; replaced by tests.
	newDriver func(kind, overridePath string) (hypervisor.Driver, error)

	// encProbe reports whether a staged archive is password protected;
	// replaced by tests.
	encProbe func(sevenZipPath, archivePath string) (bool, error)
}

// New creates a provisioner staging under workDir and resolving tools
// through catalog.
func New(workDir string, catalog *config.Catalog, log *logrus.Logger) *Provisioner {
	return &Provisioner{
		Stager:       NewStager(workDir, catalog, log),
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
		log:          log,
		newDriver:    hypervisor.New,
		encProbe: func(sevenZipPath, archivePath string) (bool, error) {
			sz, err := archive.New(sevenZipPath)
			if err != nil {
				return false, err
			}
			return sz.IsEncrypted(archivePath)
		},
	}
}

// Run executes the pipeline. On any failure the staging directories are
// removed best-effort before the original error is surfaced.
func (p *Provisioner) Run(cfg *config.AnalysisConfig) error {
	if err := p.run(cfg); err != nil {
		p.Stager.Cleanup()
		return err
	}
	return nil
}

func (p *Provisioner) run(cfg *config.AnalysisConfig) error {
	steps := timing.New()

	if err := p.Stager.Reset(); err != nil {
		return err
	}
	manifestPath, err := p.Stager.WriteManifest(cfg)
	if err != nil {
		return err
	}
	if err := p.Stager.StageTools(cfg); err != nil {
		return err
	}
	stagedBinary, err := p.Stager.StageBinary(cfg.Binary.Path)
	if err != nil {
		return err
	}
	if err := p.verifyArchivePassword(cfg, stagedBinary); err != nil {
		return err
	}
	steps.Mark("stage")

	payload, err := BuildPayload(p.Stager.ToolDir)
	if err != nil {
		return err
	}
	steps.Mark("package")

	if cfg.VM == nil {
		p.log.Info("no vm declared, local-only provisioning complete")
		p.log.Info(steps.Summary())
		return nil
	}

	drv, err := p.newDriver(cfg.VM.Type, cfg.VM.HypervisorPath)
	if err != nil {
		return err
	}
	if err := drv.Start(cfg.VM.Path, cfg.VM.Snapshot); err != nil {
		return fmt.Errorf("start VM: %w", err)
	}
	if err := p.waitReady(drv, cfg.VM.Path); err != nil {
		return err
	}
	steps.Mark("boot")

	layout := GuestLayout{Username: cfg.VM.Username}
	session := &GuestSession{
		Driver: drv,
		VMPath: cfg.VM.Path,
		Creds:  hypervisor.Credentials{Username: cfg.VM.Username, Password: cfg.VM.Password},
	}

	if err := p.transfer(cfg, session, layout, payload, stagedBinary); err != nil {
		return err
	}
	steps.Mark("transfer")

	if err := p.commitManifest(cfg, session, layout, manifestPath, stagedBinary); err != nil {
		return err
	}
	steps.Mark("commit")

	p.log.Info(steps.Summary())
	return nil
}

// waitReady blocks on the calling goroutine, probing at PollInterval until
// the guest reports ready or PollTimeout elapses. Probe errors are logged
// and treated as not-ready; only the deadline is fatal.
func (p *Provisioner) waitReady(drv hypervisor.Driver, vmPath string) error {
	deadline := time.Now().Add(p.PollTimeout)
	for {
		ready, err := drv.Ready(vmPath)
		if err != nil {
			p.log.WithError(err).Debug("readiness probe failed")
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrTimeout, p.PollTimeout)
		}
		time.Sleep(p.PollInterval)
	}
}

// transfer creates the guest working directories, ships the payload and the
// binary, and unpacks the payload into the guest tools root.
func (p *Provisioner) transfer(cfg *config.AnalysisConfig, session *GuestSession, layout GuestLayout, payload, stagedBinary string) error {
	for _, dir := range []string{layout.ToolsRoot(), layout.ResultsRoot()} {
		if err := session.MkdirAll(dir); err != nil {
			return err
		}
	}

	if err := session.CopyFile(payload, layout.PayloadPath()); err != nil {
		return fmt.Errorf("copy payload to guest: %w", err)
	}
	binaryDest := layout.BinaryPath(filepath.Ext(stagedBinary))
	if err := session.CopyFile(stagedBinary, binaryDest); err != nil {
		return fmt.Errorf("copy binary to guest: %w", err)
	}

	if err := session.ExpandArchive(layout.PayloadPath(), layout.ToolsRoot()); err != nil {
		return err
	}
	if err := session.Remove(layout.PayloadPath()); err != nil {
		return err
	}
	p.log.WithField("tools", layout.ToolsRoot()).Info("payload delivered and extracted")
	return nil
}

// commitManifest resolves the effective in-guest target (extracting archive
// binaries first), rewrites the manifest's binary reference and results
// path, and commits the manifest where the guest agent reads it.
func (p *Provisioner) commitManifest(cfg *config.AnalysisConfig, session *GuestSession, layout GuestLayout, manifestPath, stagedBinary string) error {
	binaryName := filepath.Base(stagedBinary)
	transferred := layout.BinaryPath(filepath.Ext(stagedBinary))

	target := transferred
	if isArchive(binaryName) {
		if err := session.MkdirAll(layout.BinariesDir()); err != nil {
			return err
		}
		sevenZip := layout.ToolPath(config.ArchiveTool, "7z.exe")
		err := session.Extract7z(sevenZip, transferred, layout.BinariesDir(), p.binaryPassword(cfg))
		if err != nil {
			return classifyExtract(err)
		}
		target = layout.ExtractedTarget(binaryName)
	}

	cfg.Binary.VMPath = target
	cfg.ResultsPath = layout.ResultsRoot()
	if err := cfg.Save(manifestPath); err != nil {
		return err
	}
	if err := session.CopyFile(manifestPath, layout.ManifestPath()); err != nil {
		return fmt.Errorf("commit manifest to guest: %w", err)
	}
	p.log.WithFields(logrus.Fields{
		"target":  target,
		"results": cfg.ResultsPath,
	}).Info("manifest committed")
	return nil
}

// verifyArchivePassword fails fast when the staged target is an encrypted
// archive but no password is configured, using the staged 7-Zip. When the
// host cannot run the probe, the check is skipped and the in-guest
// extraction classifies the failure instead.
func (p *Provisioner) verifyArchivePassword(cfg *config.AnalysisConfig, stagedBinary string) error {
	if !isArchive(filepath.Base(stagedBinary)) || p.binaryPassword(cfg) != "" {
		return nil
	}
	sevenZip := filepath.Join(p.Stager.ToolDir, config.ArchiveTool, "7z.exe")
	encrypted, err := p.encProbe(sevenZip, stagedBinary)
	if err != nil {
		p.log.WithError(err).Debug("encryption probe skipped")
		return nil
	}
	if encrypted {
		return fmt.Errorf("staged binary %s needs a password: %w",
			filepath.Base(stagedBinary), archive.ErrArchivePassword)
	}
	return nil
}

func (p *Provisioner) binaryPassword(cfg *config.AnalysisConfig) string {
	if cfg.Binary.Password != "" {
		return cfg.Binary.Password
	}
	if cfg.VM != nil {
		return cfg.VM.BinaryPassword
	}
	return ""
}

// isArchive reports whether the file extension indicates an archive. Other
// binaries are used as-is at their transferred path: no extraction is ever
// attempted on them.
func isArchive(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip", ".7z":
		return true
	default:
		return false
	}
}

// classifyExtract maps the vendor tool's diagnostics onto the archive error
// taxonomy so wrong-password and not-an-archive stay distinguishable.
func classifyExtract(err error) error {
	var rc *hypervisor.RemoteCommandError
	if errors.As(err, &rc) {
		if kind := archive.Classify(rc.Stderr); kind != nil {
			return fmt.Errorf("extract binary in guest: %w", kind)
		}
	}
	return fmt.Errorf("extract binary in guest: %w", err)
}
