// synth_envelope.go - ADSR envelope generator

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

type EnvelopePhase int

const (
	ENV_IDLE EnvelopePhase = iota
	ENV_ATTACK
	ENV_DECAY
	ENV_SUSTAIN
	ENV_RELEASE
)

func (p EnvelopePhase) String() string {
	switch p {
	case ENV_IDLE:
		return "idle"
	case ENV_ATTACK:
		return "attack"
	case ENV_DECAY:
		return "decay"
	case ENV_SUSTAIN:
		return "sustain"
	case ENV_RELEASE:
		return "release"
	}
	return "unknown"
}

// AdsrEnvelope produces a piecewise-linear level in [0,1]. Segment times
// are held in seconds and converted to per-sample rates whenever a
// parameter changes; a zero time makes the transition instantaneous.
// Trigger hard-restarts the attack from level 0 so a reused voice always
// attacks with deterministic latency.
type AdsrEnvelope struct {
	sampleRate float32

	attackTime   float32
	decayTime    float32
	sustainLevel float32
	releaseTime  float32

	attackRate  float32
	decayRate   float32
	releaseRate float32

	phase EnvelopePhase
	level float32
}

func NewAdsrEnvelope(sampleRate float32) *AdsrEnvelope {
	env := &AdsrEnvelope{
		sampleRate:   sampleRate,
		attackTime:   0.01,
		decayTime:    0.05,
		sustainLevel: 0.7,
		releaseTime:  0.1,
	}
	env.updateRates()
	return env
}

func (env *AdsrEnvelope) SetParameters(attack, decay, sustain, release float32) {
	env.attackTime = attack
	env.decayTime = decay
	env.sustainLevel = clamp01(sustain)
	env.releaseTime = release
	env.updateRates()
}

func (env *AdsrEnvelope) SetAttackTime(seconds float32) {
	env.attackTime = seconds
	env.updateRates()
}

func (env *AdsrEnvelope) SetDecayTime(seconds float32) {
	env.decayTime = seconds
	env.updateRates()
}

func (env *AdsrEnvelope) SetSustainLevel(level float32) {
	env.sustainLevel = clamp01(level)
	env.updateRates()
}

func (env *AdsrEnvelope) SetReleaseTime(seconds float32) {
	env.releaseTime = seconds
	env.updateRates()
}

// Trigger forces the attack phase from level zero, regardless of the
// current phase.
func (env *AdsrEnvelope) Trigger() {
	env.phase = ENV_ATTACK
	env.level = 0.0
}

// Release snaps to the release phase from any non-idle phase.
func (env *AdsrEnvelope) Release() {
	if env.phase != ENV_IDLE {
		env.phase = ENV_RELEASE
	}
}

// NextSample advances the envelope by one sample and returns the level.
func (env *AdsrEnvelope) NextSample() float32 {
	switch env.phase {
	case ENV_ATTACK:
		env.level += env.attackRate
		if env.level >= 1.0 {
			env.level = 1.0
			env.phase = ENV_DECAY
		}

	case ENV_DECAY:
		env.level -= env.decayRate
		if env.level <= env.sustainLevel {
			env.level = env.sustainLevel
			env.phase = ENV_SUSTAIN
		}

	case ENV_SUSTAIN:
		env.level = env.sustainLevel

	case ENV_RELEASE:
		env.level -= env.releaseRate
		if env.level <= 0.0 {
			env.level = 0.0
			env.phase = ENV_IDLE
		}

	case ENV_IDLE:
		env.level = 0.0
	}

	return env.level
}

func (env *AdsrEnvelope) IsActive() bool {
	return env.phase != ENV_IDLE
}

func (env *AdsrEnvelope) Level() float32 {
	return env.level
}

func (env *AdsrEnvelope) Phase() EnvelopePhase {
	return env.phase
}

func (env *AdsrEnvelope) AttackTime() float32   { return env.attackTime }
func (env *AdsrEnvelope) DecayTime() float32    { return env.decayTime }
func (env *AdsrEnvelope) SustainLevel() float32 { return env.sustainLevel }
func (env *AdsrEnvelope) ReleaseTime() float32  { return env.releaseTime }

// Reset returns to idle at level zero without passing through release.
func (env *AdsrEnvelope) Reset() {
	env.phase = ENV_IDLE
	env.level = 0.0
}

func (env *AdsrEnvelope) updateRates() {
	if env.attackTime > 0.0 {
		env.attackRate = 1.0 / (env.attackTime * env.sampleRate)
	} else {
		env.attackRate = 1.0
	}
	if env.decayTime > 0.0 {
		env.decayRate = (1.0 - env.sustainLevel) / (env.decayTime * env.sampleRate)
	} else {
		env.decayRate = 1.0
	}
	if env.releaseTime > 0.0 {
		env.releaseRate = env.sustainLevel / (env.releaseTime * env.sampleRate)
	} else {
		env.releaseRate = 1.0
	}
}

func clamp01(v float32) float32 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
