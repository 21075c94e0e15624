package processfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-gateway/pkg/errors"
	"github.com/core-tools/hsu-gateway/pkg/logging"

	"github.com/google/renameio/v2"
)

const DefaultAppName = "hsu-gateway"

// ProcessFileConfig holds configuration for PID and port files
type ProcessFileConfig struct {
	// BaseDirectory overrides the OS default chosen from ServiceContext.
	BaseDirectory   string
	ServiceContext  ServiceContext
	AppName         string
	UseSubdirectory bool
}

// ServiceContext selects the default base directory
type ServiceContext string

const (
	SystemService ServiceContext = "system"
	UserService   ServiceContext = "user"
)

// ProcessFileManager writes operator-facing PID and port files. Writes are
// atomic, so readers never observe a partially written file.
type ProcessFileManager struct {
	config ProcessFileConfig
	logger logging.Logger
}

func NewProcessFileManager(config ProcessFileConfig, logger logging.Logger) *ProcessFileManager {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}
	if config.ServiceContext == "" {
		config.ServiceContext = UserService
	}
	return &ProcessFileManager{
		config: config,
		logger: logger,
	}
}

func (m *ProcessFileManager) GeneratePIDFilePath(serviceID string) string {
	return filepath.Join(m.directory(), serviceID+".pid")
}

func (m *ProcessFileManager) GeneratePortFilePath(serviceID string) string {
	return filepath.Join(m.directory(), serviceID+".port")
}

// WritePIDFile records pid for serviceID
func (m *ProcessFileManager) WritePIDFile(serviceID string, pid int) error {
	return m.writeInt(m.GeneratePIDFilePath(serviceID), "PID", serviceID, pid)
}

// WritePortFile records port for serviceID
func (m *ProcessFileManager) WritePortFile(serviceID string, port int) error {
	return m.writeInt(m.GeneratePortFilePath(serviceID), "port", serviceID, port)
}

func (m *ProcessFileManager) ReadPIDFile(serviceID string) (int, error) {
	return m.readInt(m.GeneratePIDFilePath(serviceID), "PID", serviceID)
}

func (m *ProcessFileManager) ReadPortFile(serviceID string) (int, error) {
	return m.readInt(m.GeneratePortFilePath(serviceID), "port", serviceID)
}

// Remove deletes both files; missing files are not an error.
func (m *ProcessFileManager) Remove(serviceID string) error {
	collection := errors.NewErrorCollection()
	for _, path := range []string{m.GeneratePIDFilePath(serviceID), m.GeneratePortFilePath(serviceID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			collection.Add(errors.NewIOError("failed to remove process file", err).WithContext("path", path))
		}
	}
	if collection.HasErrors() {
		m.logger.Warnf("Failed to remove process files, service: %s, error: %v", serviceID, collection)
	}
	return collection.ToError()
}

func (m *ProcessFileManager) writeInt(path, kind, serviceID string, value int) error {
	m.logger.Debugf("Writing %s file, service: %s, value: %d, path: %s", kind, serviceID, value, path)

	if err := ValidateProcessFileDirectory(path); err != nil {
		m.logger.Errorf("%s file directory validation failed, service: %s, path: %s, error: %v", kind, serviceID, path, err)
		return err
	}

	if err := renameio.WriteFile(path, []byte(fmt.Sprintf("%d\n", value)), 0o644); err != nil {
		m.logger.Errorf("Failed to write %s file, service: %s, path: %s, error: %v", kind, serviceID, path, err)
		return errors.NewIOError("failed to write "+kind+" file", err).WithContext("path", path).WithContext("value", value)
	}

	m.logger.Debugf("%s file written, service: %s, value: %d, path: %s", kind, serviceID, value, path)
	return nil
}

func (m *ProcessFileManager) readInt(path, kind, serviceID string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.NewIOError("failed to read "+kind+" file", err).WithContext("path", path)
	}

	raw := strings.TrimSpace(string(content))
	value, err := strconv.Atoi(raw)
	if err != nil {
		m.logger.Errorf("Invalid content in %s file, service: %s, path: %s, content: %s", kind, serviceID, path, raw)
		return 0, errors.NewValidationError("invalid "+kind+" file content", err).WithContext("path", path).WithContext("content", raw)
	}
	return value, nil
}

func (m *ProcessFileManager) directory() string {
	dir := m.config.BaseDirectory
	if dir == "" {
		if m.config.ServiceContext == SystemService {
			dir = systemServiceDirectory()
		} else {
			dir = userServiceDirectory()
		}
	}
	if m.config.UseSubdirectory {
		dir = filepath.Join(dir, m.config.AppName)
	}
	return dir
}

func systemServiceDirectory() string {
	switch runtime.GOOS {
	case "windows":
		if programData := os.Getenv("PROGRAMDATA"); programData != "" {
			return programData
		}
		return "C:\\ProgramData"
	case "darwin":
		return "/var/run"
	default:
		if _, err := os.Stat("/run"); err == nil {
			return "/run"
		}
		return "/var/run"
	}
}

func userServiceDirectory() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return localAppData
		}
		return os.TempDir()
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
		return os.TempDir()
	default:
		if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
			return runtimeDir
		}
		return os.TempDir()
	}
}

// ValidateProcessFileDirectory creates the parent directory of path if
// needed and checks that it is a directory.
func ValidateProcessFileDirectory(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIOError("failed to create process file directory", err).WithContext("directory", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.NewIOError("process file directory not accessible", err).WithContext("directory", dir)
	}
	if !info.IsDir() {
		return errors.NewValidationError("process file parent is not a directory", nil).WithContext("directory", dir)
	}
	return nil
}
