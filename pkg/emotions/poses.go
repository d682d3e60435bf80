package emotions

// Pose tables as authored for the reference build. Each helper expands a
// pattern over a pulse range so a recalibrated servo range keeps the shape.

func repeat(p Pose, n int) []Pose {
	out := make([]Pose, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func cycle(pattern []Pose, n int) []Pose {
	out := make([]Pose, 0, len(pattern)*n)
	for i := 0; i < n; i++ {
		out = append(out, pattern...)
	}
	return out
}

// Poses returns the authored actuator sequence for e within range r.
// Shush has no poses.
func Poses(e Emotion, r PulseRange) ([]Pose, error) {
	hi, lo := r.Max, r.Min
	half := r.Max / 2

	var seq []Pose
	switch e {
	case Happy:
		seq = append(repeat(Pose{hi, hi}, 10), repeat(Pose{lo, lo}, 10)...)
	case Sad:
		seq = append(repeat(Pose{hi, lo}, 10), repeat(Pose{lo, lo}, 10)...)
	case Angry:
		seq = append(repeat(Pose{lo, hi}, 10), repeat(Pose{lo, lo}, 10)...)
	case Blink, Neutral:
		seq = append(repeat(Pose{half, half}, 10), repeat(Pose{lo, lo}, 10)...)
	case Excited:
		seq = cycle([]Pose{{hi, hi}, {lo, lo}}, 5)
	case Dizzy:
		seq = cycle([]Pose{{hi, lo}, {lo, hi}}, 5)
	case Sleep:
		seq = repeat(Pose{lo, lo}, 20)
	case Shush:
		return nil, ErrNotAnimated
	default:
		return nil, &UnknownEmotionError{Tag: e.String()}
	}

	for i := range seq {
		seq[i] = r.Clamp(seq[i])
	}
	return seq, nil
}

// Sequence pairs frames with poses. The pose table bounds the number of
// steps; when there are fewer frames than poses the frames repeat in order.
// An empty frame list yields ErrNoFrames.
func Sequence(frames []string, poses []Pose) ([]Step, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	steps := make([]Step, len(poses))
	for i, p := range poses {
		steps[i] = Step{Frame: frames[i%len(frames)], Pose: p}
	}
	return steps, nil
}
