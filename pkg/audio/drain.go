package audio

// Drain reads from ch until the channel is closed, discarding all values.
// Use this to prevent goroutine leaks when you don't need the data from a
// streaming channel (e.g., the frame channel of a [Source] being shut down).
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}

// Flush discards everything currently queued on ch without blocking.
// The recorder uses this between recording cycles so that audio which
// arrived while the previous utterance was being processed cannot
// contaminate the next one.
func Flush[T any](ch <-chan T) int {
	n := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
