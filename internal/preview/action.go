package preview

// Action is a user command read from an interactive preview.
type Action int

const (
	ActionNone Action = iota
	// ActionCapture captures immediately while scanning.
	ActionCapture
	// ActionConfirm keeps the reviewed capture.
	ActionConfirm
	ActionRetake
	ActionQuit
)

// highgui key codes
const (
	keyEnter  = 13
	keyEscape = 27
)

// keyAction maps a highgui key code to an action.
func keyAction(key int) Action {
	switch key {
	case ' ', 'c', 'C':
		return ActionCapture
	case keyEnter, '\n':
		return ActionConfirm
	case 'r', 'R':
		return ActionRetake
	case 'q', 'Q', keyEscape:
		return ActionQuit
	}
	return ActionNone
}

// reviewAction reduces a key pressed on the review screen: retake and quit
// are honoured, anything else keeps the capture.
func reviewAction(a Action) Action {
	if a == ActionRetake || a == ActionQuit {
		return a
	}
	return ActionConfirm
}
