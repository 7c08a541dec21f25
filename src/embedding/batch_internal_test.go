package embedding

import (
	"strings"
	"testing"
)

func TestPartition(t *testing.T) {
	short := strings.Repeat("a", 40)  // 10 tokens
	long := strings.Repeat("b", 400)  // 100 tokens

	tests := []struct {
		name      string
		texts     []string
		maxTexts  int
		maxTokens int
		want      [][]string
	}{
		{
			name:      "single batch",
			texts:     []string{short, short},
			maxTexts:  10,
			maxTokens: 1000,
			want:      [][]string{{short, short}},
		},
		{
			name:      "count limit",
			texts:     []string{short, short, short},
			maxTexts:  2,
			maxTokens: 1000,
			want:      [][]string{{short, short}, {short}},
		},
		{
			name:      "token limit",
			texts:     []string{short, short, short},
			maxTexts:  10,
			maxTokens: 20,
			want:      [][]string{{short, short}, {short}},
		},
		{
			name:      "oversized text goes alone",
			texts:     []string{short, long, short},
			maxTexts:  10,
			maxTokens: 50,
			want:      [][]string{{short}, {long}, {short}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient("", "", nil, WithBatchLimits(tt.maxTexts, tt.maxTokens))
			batches := c.partition(tt.texts)

			if len(batches) != len(tt.want) {
				t.Fatalf("partition() produced %d batches, want %d", len(batches), len(tt.want))
			}
			offset := 0
			for i, b := range batches {
				if b.offset != offset {
					t.Errorf("batch %d offset = %d, want %d", i, b.offset, offset)
				}
				if len(b.texts) != len(tt.want[i]) {
					t.Errorf("batch %d has %d texts, want %d", i, len(b.texts), len(tt.want[i]))
				}
				offset += len(b.texts)
			}
		})
	}
}
