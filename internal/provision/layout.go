package provision

import "path"

// GuestLayout computes the fixed in-guest destinations for one run. Guest
// paths are Windows paths and are assembled with explicit backslashes; the
// host OS separator is irrelevant here.
type GuestLayout struct {
	Username string
}

// Desktop is the transfer landing zone for the guest user.
func (l GuestLayout) Desktop() string {
	return `C:\Users\` + l.Username + `\Desktop`
}

// PayloadPath is where the packaged tool archive lands before extraction.
func (l GuestLayout) PayloadPath() string {
	return l.Desktop() + `\tools.zip`
}

// BinaryPath is the transferred analysis target, keeping its extension so
// the guest can tell archives from plain executables.
func (l GuestLayout) BinaryPath(ext string) string {
	return l.Desktop() + `\binary` + ext
}

// ToolsRoot holds one subfolder per staged tool.
func (l GuestLayout) ToolsRoot() string {
	return l.Desktop() + `\Tools`
}

// ToolPath returns a path inside a staged tool's folder.
func (l GuestLayout) ToolPath(tool, file string) string {
	return l.ToolsRoot() + `\` + tool + `\` + file
}

// BinariesDir is the extraction target for archive-packaged targets.
func (l GuestLayout) BinariesDir() string {
	return l.Desktop() + `\Binaries`
}

// ResultsRoot is where the guest agent writes all analysis output.
func (l GuestLayout) ResultsRoot() string {
	return l.Desktop() + `\Analysis_Results`
}

// ManifestPath is where the committed manifest is read by the guest agent.
func (l GuestLayout) ManifestPath() string {
	return l.Desktop() + `\analysis_config.json`
}

// ExtractedTarget predicts the effective analysis target after archive
// extraction: the archived file keeps its base name minus the archive
// extension. The guest agent falls back to the first file in the directory
// if the prediction misses.
func (l GuestLayout) ExtractedTarget(binaryName string) string {
	stem := binaryName[:len(binaryName)-len(path.Ext(binaryName))]
	return l.BinariesDir() + `\` + stem
}
