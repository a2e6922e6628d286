package provision

import (
	"fmt"

	"github.com/javanstorm/guestlab/pkg/hypervisor"
)

// powershellPath is the fixed in-guest PowerShell location used for one-shot
// remote commands.
const powershellPath = `C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`

// GuestSession translates orchestrator intents into one-shot, non-interactive
// guest commands through the hypervisor driver. Calls are synchronous from
// the orchestrator's perspective and never retried here; retry policy belongs
// to the caller. Creation commands use force semantics so repeats are
// idempotent.
type GuestSession struct {
	Driver hypervisor.Driver
	VMPath string
	Creds  hypervisor.Credentials
}

func (s *GuestSession) powershell(command string) error {
	return s.Driver.RunInGuest(s.VMPath, powershellPath, []string{"-command", command}, s.Creds)
}

// MkdirAll creates a guest directory, succeeding if it already exists.
func (s *GuestSession) MkdirAll(path string) error {
	cmd := fmt.Sprintf(`"New-Item -ItemType Directory -Path '%s' -Force"`, path)
	if err := s.powershell(cmd); err != nil {
		return fmt.Errorf("create guest dir %s: %w", path, err)
	}
	return nil
}

// ExpandArchive unpacks a zip archive inside the guest, overwriting existing
// files.
func (s *GuestSession) ExpandArchive(src, dest string) error {
	cmd := fmt.Sprintf(`"Expand-Archive -Path '%s' -DestinationPath '%s' -Force"`, src, dest)
	if err := s.powershell(cmd); err != nil {
		return fmt.Errorf("expand guest archive %s: %w", src, err)
	}
	return nil
}

// Remove deletes a guest file or directory tree.
func (s *GuestSession) Remove(path string) error {
	cmd := fmt.Sprintf(`"Remove-Item -Path '%s' -Recurse -Force"`, path)
	if err := s.powershell(cmd); err != nil {
		return fmt.Errorf("remove guest path %s: %w", path, err)
	}
	return nil
}

// Extract7z unpacks an archive with the staged 7-Zip, honoring an optional
// password. Used for archive-packaged analysis targets, where PowerShell's
// Expand-Archive cannot handle encryption.
func (s *GuestSession) Extract7z(sevenZip, archive, dest, password string) error {
	cmd := fmt.Sprintf(`"& '%s' x`, sevenZip)
	if password != "" {
		cmd += " -p" + password
	}
	cmd += fmt.Sprintf(` -o'%s' -y '%s'"`, dest, archive)
	if err := s.powershell(cmd); err != nil {
		return fmt.Errorf("extract guest archive %s: %w", archive, err)
	}
	return nil
}

// CopyFile transfers a host file into the guest.
func (s *GuestSession) CopyFile(hostPath, guestPath string) error {
	return s.Driver.CopyToGuest(s.VMPath, hostPath, guestPath, s.Creds)
}
