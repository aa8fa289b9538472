package simulation

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

var (
	// HookPosStart is invoked on the simulation goroutine before the first
	// tick.
	HookPosStart = &HookPos{Name: "Start"}

	// HookPosBeforeTick is invoked right before the tick body runs. The
	// item is the number of ticks completed so far.
	HookPosBeforeTick = &HookPos{Name: "BeforeTick"}

	// HookPosAfterTick is invoked right after the tick body returns. The
	// item is the number of ticks completed, including this one.
	HookPosAfterTick = &HookPos{Name: "AfterTick"}

	// HookPosStop is invoked on the simulation goroutine after the loop
	// exits.
	HookPosStop = &HookPos{Name: "Stop"}
)

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface. Hooks must be registered before the simulation
// starts.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	for _, h := range h.hookList {
		if h == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
