package core

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/jessevdk/go-flags"
	"github.com/massn/envordot"
)

// LoadFromEnv reads QVM_MAX_QUBITS, QVM_PRECISION, QVM_DEBUG_MODE,
// QVM_LOG_LEVEL and QVM_LOG_FILE into a fresh Conf, following spec.md §6.
// It never touches the command line: flags.IgnoreUnknown lets it coexist
// with whatever CLI a caller's own main() parses, the same way the
// teacher's Conf struct doubled as both a CLI and an env-var surface.
func LoadFromEnv() (*Conf, error) {
	_ = envordot.Load(false, ".env") // best-effort .env support for local test harnesses

	conf := DefaultConf()
	parser := flags.NewParser(conf, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs([]string{}); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadFromFile decodes a TOML settings file into a fresh Conf seeded
// with DefaultConf, for deployments that prefer a checked-in config
// file over QVM_* environment variables. Fields the file omits keep
// their default value.
func LoadFromFile(path string) (*Conf, error) {
	conf := DefaultConf()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadFromEnviron is LoadFromEnv without the .env side effect, useful in
// tests that want full control over os.Environ.
func LoadFromEnviron(environ []string) (*Conf, error) {
	saved := os.Environ()
	os.Clearenv()
	defer func() {
		os.Clearenv()
		for _, kv := range saved {
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					os.Setenv(kv[:i], kv[i+1:])
					break
				}
			}
		}
	}()
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				os.Setenv(kv[:i], kv[i+1:])
				break
			}
		}
	}
	conf := DefaultConf()
	parser := flags.NewParser(conf, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs([]string{}); err != nil {
		return nil, err
	}
	return conf, nil
}
