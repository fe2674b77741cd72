package llm

import (
	"sync"
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the number of tokens in text.
type TokenCounter func(text string) int

// ApproxTokens is the four-characters-per-token heuristic.
func ApproxTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

var (
	encOnce sync.Once
	enc     atomic.Pointer[tiktoken.Tiktoken]
	// loadEncoding may fetch the BPE ranks over the network
	loadEncoding = func() (*tiktoken.Tiktoken, error) { return tiktoken.GetEncoding("cl100k_base") }
)

// TiktokenCounter counts with the cl100k_base encoding. Llama and Claude use
// other vocabularies, so the result is an estimate used only when a provider
// reports no usage. The encoding loads in the background on first use; until
// it is ready, or if it fails to load, counts come from ApproxTokens.
func TiktokenCounter() TokenCounter {
	return func(text string) int {
		encOnce.Do(func() {
			load := loadEncoding
			go func() {
				if e, err := load(); err == nil {
					enc.Store(e)
				}
			}()
		})
		if e := enc.Load(); e != nil {
			return len(e.Encode(text, nil, nil))
		}
		return ApproxTokens(text)
	}
}

// CountMessages sums counter over the content of msgs.
func CountMessages(counter TokenCounter, msgs []Message) int {
	if counter == nil {
		counter = ApproxTokens
	}
	n := 0
	for _, m := range msgs {
		n += counter(m.Content)
	}
	return n
}
