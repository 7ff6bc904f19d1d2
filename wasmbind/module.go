package wasmbind

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/handle-graph/errors"
	"github.com/wippyai/handle-graph/handle"
)

// Namespace is the import module name guests link against.
const Namespace = "lifetime"

// Module exposes a registry to WASM guests as a wazero host module.
// Guests hold handle ids as plain u32 values and never see Go pointers;
// every mutating export returns a Status.
type Module struct {
	reg *handle.Registry
}

// New wraps a registry for guest consumption.
func New(reg *handle.Registry) *Module {
	return &Module{reg: reg}
}

// Registry returns the wrapped registry.
func (m *Module) Registry() *handle.Registry {
	return m.reg
}

// Instantiate builds the host module and instantiates it into rt. The
// returned module is owned by the runtime; closing the runtime closes it.
func (m *Module) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(Namespace)

	for _, sig := range signatures() {
		var fn api.GoModuleFunc
		switch sig.Name {
		case "add-dependency":
			fn = m.addDependency
		case "dec-ref":
			fn = m.decRef
		case "ref-count":
			fn = m.refCount
		case "valid":
			fn = m.valid
		}
		if fn == nil {
			return nil, errors.Registration(Namespace, sig.Name, nil)
		}

		builder.NewFunctionBuilder().
			WithGoModuleFunction(fn, sig.CoreParams(), sig.CoreResults()).
			Export(sig.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(Namespace, "host-module", err)
	}

	Logger().Debug("host module instantiated",
		zap.String("module", Namespace),
		zap.Int("functions", len(signatures())))

	return mod, nil
}

// WIT renders the host interface description for guest authors.
func (m *Module) WIT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface %s {\n", Namespace)
	for _, sig := range signatures() {
		b.WriteString("  ")
		b.WriteString(sig.WIT())
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (m *Module) addDependency(_ context.Context, _ api.Module, stack []uint64) {
	dependent := handle.Handle(uint32(stack[0]))
	dependency := handle.Handle(uint32(stack[1]))
	st := statusOf(m.reg.AddDependency(dependent, dependency))
	stack[0] = uint64(int64(st))
}

func (m *Module) decRef(_ context.Context, _ api.Module, stack []uint64) {
	h := handle.Handle(uint32(stack[0]))
	st := statusOf(m.reg.Release(h))
	stack[0] = uint64(int64(st))
}

func (m *Module) refCount(_ context.Context, _ api.Module, stack []uint64) {
	h := handle.Handle(uint32(stack[0]))
	count, err := m.reg.RefCount(h)
	if err != nil {
		stack[0] = api.EncodeI64(-1)
		return
	}
	stack[0] = uint64(count)
}

func (m *Module) valid(_ context.Context, _ api.Module, stack []uint64) {
	h := handle.Handle(uint32(stack[0]))
	if m.reg.Valid(h) {
		stack[0] = 1
	} else {
		stack[0] = 0
	}
}
