package vm

import (
	"sync"

	"github.com/Yogirajpp/qvm/core"
	"go.uber.org/dig"
)

// defaultContainer wires a process-wide VM singleton with
// go.uber.org/dig, the same container library the teacher's
// SystemComponents uses to wire its own process-wide singletons. Built
// lazily so a library consumer who never calls Default() never pays for
// the container or the VM it would hold.
var (
	defaultOnce sync.Once
	defaultVM   *VM
)

func buildContainer() (*VM, error) {
	c := dig.New()
	if err := c.Provide(core.DefaultConf); err != nil {
		return nil, err
	}
	if err := c.Provide(func(conf *core.Conf) *VM {
		v := New()
		v.Initialize(conf)
		return v
	}); err != nil {
		return nil, err
	}
	var out *VM
	if err := c.Invoke(func(v *VM) { out = v }); err != nil {
		return nil, err
	}
	return out, nil
}

// Default returns the process-wide VM singleton, constructing it on
// first use per the "Global VM" design note in spec.md §9. Every
// operation it exposes is also available on an explicit *VM value;
// Default is a convenience, never the only path.
func Default() *VM {
	defaultOnce.Do(func() {
		v, err := buildContainer()
		if err != nil {
			// dig.Provide/Invoke only fail on wiring mistakes (cyclic or
			// missing providers), never on runtime input; a failure here
			// is a programming error in this file, not a caller concern.
			panic(err)
		}
		defaultVM = v
	})
	return defaultVM
}
