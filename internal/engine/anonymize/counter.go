package anonymize

// counterStack holds one next-id value per open nesting level. Level 0 is the
// global frame and survives every reset.
type counterStack struct {
	frames []int
}

func newCounterStack() counterStack {
	return counterStack{frames: []int{1}}
}

func (s *counterStack) current() int {
	return s.frames[len(s.frames)-1]
}

func (s *counterStack) increment() {
	s.frames[len(s.frames)-1]++
}

func (s *counterStack) push() {
	s.frames = append(s.frames, 1)
}

func (s *counterStack) depth() int {
	return len(s.frames)
}

// truncate drops frames above depth. It never drops the global frame and is a
// no-op when the stack is already at or below depth.
func (s *counterStack) truncate(depth int) {
	if depth < 1 {
		depth = 1
	}
	if len(s.frames) > depth {
		s.frames = s.frames[:depth]
	}
}

// reset returns to the global frame without zeroing it.
func (s *counterStack) reset() {
	s.truncate(1)
}
