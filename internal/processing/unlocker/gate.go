package unlocker

type State int

const (
	InProgress State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "in_progress"
}

// Step is a snapshot of a gate.
type Step struct {
	State    State
	Progress int
	Length   int
}

// Gate matches clicks against a fixed color sequence. A wrong click drops
// all progress. Once unlocked, further clicks are ignored and onUnlock has
// fired exactly once. A Gate is not safe for concurrent use.
type Gate struct {
	sequence []Color
	progress int
	unlocked bool
	onUnlock func()
}

func NewGate(sequence []Color, onUnlock func()) (*Gate, error) {
	if len(sequence) == 0 {
		return nil, ErrEmptySequence
	}
	return &Gate{
		sequence: append([]Color(nil), sequence...),
		onUnlock: onUnlock,
	}, nil
}

func (g *Gate) Click(c Color) Step {
	if g.unlocked {
		return g.Step()
	}

	if g.sequence[g.progress] != c {
		g.progress = 0
		return g.Step()
	}

	g.progress++
	if g.progress == len(g.sequence) {
		g.unlocked = true
		if g.onUnlock != nil {
			g.onUnlock()
		}
	}
	return g.Step()
}

func (g *Gate) Step() Step {
	state := InProgress
	if g.unlocked {
		state = Unlocked
	}
	return Step{State: state, Progress: g.progress, Length: len(g.sequence)}
}
