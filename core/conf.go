// Package core holds the configuration surface and the error taxonomy
// shared by every other package: the qubit/amplitude/bytecode packages
// never import each other's error types, they import core's.
package core

// Conf is populated from the environment via LoadFromEnv (or from a TOML
// file via LoadFromFile), or overridden
// programmatically through vm.Initialize. Env vars take the names the
// reference implementation documents; programmatic configuration always
// wins over them.
type Conf struct {
	MaxQubits uint16  `long:"max-qubits" toml:"max_qubits" description:"maximum number of live qubits" default:"32" env:"QVM_MAX_QUBITS"`
	Precision float64 `long:"precision" toml:"precision" description:"normalization tolerance epsilon" default:"1e-10" env:"QVM_PRECISION"`
	Debug     bool    `long:"debug" toml:"debug" description:"enable unitarity checks and verbose diagnostics" env:"QVM_DEBUG_MODE"`
	LogLevel  string  `long:"log-level" toml:"log_level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" env:"QVM_LOG_LEVEL"`
	LogFile   string  `long:"log-file" toml:"log_file" description:"rotating log file path; empty disables file logging" env:"QVM_LOG_FILE"`
}

// DefaultConf mirrors the defaults spec.md §6 assigns to initialize's
// config keys.
func DefaultConf() *Conf {
	return &Conf{
		MaxQubits: 32,
		Precision: 1e-10,
		Debug:     false,
		LogLevel:  "info",
	}
}
