package frameloop

// FuncModule is a module built from a sparse phase -> handler table. It is
// convenient for small modules and tests.
type FuncModule struct {
	name     string
	handlers map[Phase]PhaseFunc
}

// NewFuncModule creates a module named name. Nil handlers are dropped, so
// the module's phases are exactly the keys with a handler.
func NewFuncModule(name string, handlers map[Phase]PhaseFunc) *FuncModule {
	m := &FuncModule{name: name, handlers: make(map[Phase]PhaseFunc, len(handlers))}
	for p, fn := range handlers {
		if fn != nil && p.Valid() {
			m.handlers[p] = fn
		}
	}
	return m
}

// Name returns the module name.
func (m *FuncModule) Name() string { return m.name }

// SupportedPhases returns the phases with a handler.
func (m *FuncModule) SupportedPhases() PhaseMask {
	var mask PhaseMask
	for p := range m.handlers {
		mask = mask.With(p)
	}
	return mask
}

// Handler returns the handler for p, or nil.
func (m *FuncModule) Handler(p Phase) PhaseFunc {
	return m.handlers[p]
}
