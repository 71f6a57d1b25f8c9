package core

// Critical runs fn with interrupts masked. Keep fn short: every tick spent
// here delays the next bit sample by the same amount.
func Critical(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
