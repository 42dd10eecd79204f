package nativemodule

import "fmt"

// registryState tracks the registry lifecycle:
// uninitialized → initialized → registering → finalized.
type registryState int

const (
	stateUninitialized registryState = iota
	stateInitialized
	stateRegistering
	stateFinalized
)

// Registry is the catalog of native-module libraries, modules,
// operator bindings and optimization rules. It is an explicitly
// constructed registration context: registration is rejected after
// finalization, queries are rejected before it. Once finalized the
// registry is immutable and safe for concurrent reads.
type Registry struct {
	state registryState

	libraries      []*Library
	librariesByID  map[uint32]*Library
	modules        []*Module
	modulesByUID   map[UID]*Module
	operators      [OperatorCount]string
	operatorByName map[string]Operator

	optimizationsEnabled bool
	rules                []*OptimizationRule
}

// NewRegistry returns an initialized, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		state:          stateInitialized,
		librariesByID:  map[uint32]*Library{},
		modulesByUID:   map[UID]*Module{},
		operatorByName: map[string]Operator{},
	}
}

// BeginRegistration opens the registry for module registration. When
// optimizationsEnabled is false, registered optimization rules are
// silently dropped (the runtime has no use for them).
func (r *Registry) BeginRegistration(optimizationsEnabled bool) error {
	if r.state != stateInitialized {
		return fmt.Errorf("native module registry: registration already started")
	}
	r.state = stateRegistering
	r.optimizationsEnabled = optimizationsEnabled
	return nil
}

// RegisterLibrary adds a native-module library.
func (r *Registry) RegisterLibrary(library *Library) error {
	if r.state != stateRegistering {
		return fmt.Errorf("native module registry: not in registration state")
	}
	if _, exists := r.librariesByID[library.ID]; exists {
		return fmt.Errorf("native module library id %d already registered", library.ID)
	}
	r.libraries = append(r.libraries, library)
	r.librariesByID[library.ID] = library
	return nil
}

// RegisterModule adds a native module. Duplicate UIDs and overload
// collisions (same name, same argument-type key) are rejected.
func (r *Registry) RegisterModule(module *Module) error {
	if r.state != stateRegistering {
		return fmt.Errorf("native module registry: not in registration state")
	}
	if module.Name == "" {
		return fmt.Errorf("native module has no name")
	}
	if _, exists := r.modulesByUID[module.UID]; exists {
		return fmt.Errorf("native module uid %v already registered", module.UID)
	}
	if module.ReturnArgumentIndex != NoReturnArgument {
		argument := module.Arguments[module.ReturnArgumentIndex]
		if argument.Direction != DirectionOut {
			return fmt.Errorf("native module '%s' return argument is not an out argument", module.Name)
		}
	}
	for _, other := range r.modules {
		if modulesConflict(module, other) {
			return fmt.Errorf("native module '%s' conflicts with an existing overload", module.Name)
		}
	}
	r.modules = append(r.modules, module)
	r.modulesByUID[module.UID] = module
	return nil
}

// RegisterOperator binds an operator to a native module name.
func (r *Registry) RegisterOperator(operator Operator, moduleName string) error {
	if r.state != stateRegistering {
		return fmt.Errorf("native module registry: not in registration state")
	}
	r.operators[operator] = moduleName
	r.operatorByName[moduleName] = operator
	return nil
}

// RegisterOptimizationRule records a rule; rules are dropped when
// optimizations are disabled.
func (r *Registry) RegisterOptimizationRule(rule *OptimizationRule) error {
	if r.state != stateRegistering {
		return fmt.Errorf("native module registry: not in registration state")
	}
	if r.optimizationsEnabled {
		r.rules = append(r.rules, rule)
	}
	return nil
}

// EndRegistration finalizes the registry. Every operator slot must be
// bound to the name of a registered module.
func (r *Registry) EndRegistration() error {
	if r.state != stateRegistering {
		return fmt.Errorf("native module registry: not in registration state")
	}
	for operator := Operator(0); operator < OperatorCount; operator++ {
		name := r.operators[operator]
		if name == "" {
			return fmt.Errorf("native operator %d is unbound", operator)
		}
		found := false
		for _, module := range r.modules {
			if module.Name == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("native operator %d is bound to unregistered module '%s'", operator, name)
		}
	}
	r.state = stateFinalized
	return nil
}

// Finalized reports whether queries are allowed.
func (r *Registry) Finalized() bool {
	return r.state == stateFinalized
}

// Modules returns all registered modules in registration order.
func (r *Registry) Modules() []*Module {
	if r.state != stateFinalized {
		return nil
	}
	return r.modules
}

// ModuleByUID resolves a module by UID, or nil.
func (r *Registry) ModuleByUID(uid UID) *Module {
	if r.state != stateFinalized {
		return nil
	}
	return r.modulesByUID[uid]
}

// Libraries returns all registered libraries.
func (r *Registry) Libraries() []*Library {
	if r.state != stateFinalized {
		return nil
	}
	return r.libraries
}

// LibraryByName resolves a library by name, or nil.
func (r *Registry) LibraryByName(name string) *Library {
	if r.state != stateFinalized {
		return nil
	}
	for _, library := range r.libraries {
		if library.Name == name {
			return library
		}
	}
	return nil
}

// LibraryModules returns the modules belonging to one library.
func (r *Registry) LibraryModules(libraryID uint32) []*Module {
	if r.state != stateFinalized {
		return nil
	}
	var result []*Module
	for _, module := range r.modules {
		if module.UID.LibraryID() == libraryID {
			result = append(result, module)
		}
	}
	return result
}

// OperatorModule returns the module name bound to an operator.
func (r *Registry) OperatorModule(operator Operator) string {
	if r.state != stateFinalized {
		return ""
	}
	return r.operators[operator]
}

// ModuleOperator returns the operator bound to a module name, or
// OperatorInvalid.
func (r *Registry) ModuleOperator(name string) Operator {
	if r.state != stateFinalized {
		return OperatorInvalid
	}
	if operator, ok := r.operatorByName[name]; ok {
		return operator
	}
	return OperatorInvalid
}

// Rules returns the registered optimization rules.
func (r *Registry) Rules() []*OptimizationRule {
	if r.state != stateFinalized {
		return nil
	}
	return r.rules
}

// modulesConflict reports an overload collision: same name and same
// argument-type key. Only types are considered, not qualifiers; the
// return argument (when script-visible) is excluded from the key.
func modulesConflict(a, b *Module) bool {
	if a.Name != b.Name {
		return false
	}
	keyA := overloadKey(a)
	keyB := overloadKey(b)
	if len(keyA) != len(keyB) {
		return false
	}
	for index := range keyA {
		if keyA[index] != keyB[index] {
			return false
		}
	}
	return true
}

func overloadKey(module *Module) []DataType {
	var key []DataType
	for index, argument := range module.Arguments {
		if index == module.ReturnArgumentIndex {
			continue
		}
		key = append(key, argument.Type.DataType)
	}
	return key
}
