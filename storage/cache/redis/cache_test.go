package rediscache

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseCounters(t *testing.T) {
	keys := []string{"version:all", "version:course:7", "version:assessment:1"}

	tests := []struct {
		name    string
		raw     []interface{}
		want    []int64
		wantErr bool
	}{
		{name: "never bumped", raw: []interface{}{nil, nil, nil}, want: []int64{0, 0, 0}},
		{name: "bumped", raw: []interface{}{"3", nil, "12"}, want: []int64{3, 0, 12}},
		{name: "not a counter", raw: []interface{}{"3", "report", nil}, wantErr: true},
		{name: "unexpected type", raw: []interface{}{int64(3), nil, nil}, wantErr: true},
		{name: "short reply", raw: []interface{}{"3"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCounters(keys, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCache_unreachable(t *testing.T) {
	ctx := context.Background()
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	defer c.Close()

	assert.Error(t, c.Incr(ctx, "version:all"))
	_, err := c.Counters(ctx, "version:all")
	assert.Error(t, err)

	// no round trip needed
	assert.NoError(t, c.Incr(ctx))
	got, err := c.Counters(ctx)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
