package extract

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewal/internal/workspace"
)

const readelfListing = `There are 12 section headers, starting at offset 0x4f0:

Section Headers:
  [Nr] Name              Type            Addr     Off    Size   ES Flg Lk Inf Al
  [ 0]                   NULL            00000000 000000 000000 00      0   0  0
  [ 1] .text             PROGBITS        00000000 000034 000000 00  AX  0   0  4
  [ 2] .text.main        PROGBITS        00000000 000034 000030 00  AX  0   0  4
  [ 3] .rel.text.main    REL             00000000 000420 000010 08   I  9   2  4
  [ 4] .text.helper      PROGBITS        00000000 000064 00001c 00  AX  0   0  4
  [ 5] .data.counter     PROGBITS        00000000 000080 000004 00  WA  0   0  4
  [ 6] .text.            PROGBITS        00000000 000084 000000 00  AX  0   0  4
  [ 7] .text.unlikely.cold PROGBITS      00000000 000084 000008 00  AX  0   0  4
garbage line without sections
`

func TestExtract(t *testing.T) {
	m := Extract(readelfListing, CodeMatcher)

	assert.Equal(t, []string{"main", "helper", "unlikely.cold"}, m.Symbols())
	assert.Equal(t, 3, m.Len())

	regions, ok := m.Regions("main")
	require.True(t, ok)
	assert.Equal(t, []string{".text.main", ".rel.text.main"}, regions)

	regions, ok = m.Regions("unlikely.cold")
	require.True(t, ok)
	assert.Equal(t, []string{".text.unlikely.cold"}, regions)

	_, ok = m.Regions("counter")
	assert.False(t, ok)
}

func TestExtractMatchers(t *testing.T) {
	data := Extract(readelfListing, DataMatcher)
	assert.Equal(t, []string{"counter"}, data.Symbols())

	both := Extract(readelfListing, CodeAndDataMatcher)
	assert.Equal(t, []string{"main", "helper", "counter", "unlikely.cold"}, both.Symbols())
}

func TestExtractEmpty(t *testing.T) {
	assert.Zero(t, Extract("", CodeMatcher).Len())
	assert.Zero(t, Extract("no sections here\n", CodeMatcher).Len())
}

func TestMatch(t *testing.T) {
	tests := []struct {
		line   string
		region string
		symbol string
		ok     bool
	}{
		{"  [ 2] .text.main PROGBITS", ".text.main", "main", true},
		{".rel.text.foo", ".rel.text.foo", "foo", true},
		{"  [ 1] .text PROGBITS", "", "", false},
		{"  [ 6] .text. PROGBITS", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		region, symbol, ok := CodeMatcher.Match(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.region, region, tt.line)
		assert.Equal(t, tt.symbol, symbol, tt.line)
	}
}

func TestMatcherByName(t *testing.T) {
	m, err := MatcherByName("code+data")
	require.NoError(t, err)
	assert.Equal(t, CodeAndDataMatcher, m)

	_, err = MatcherByName("bogus")
	assert.Error(t, err)
}

func TestCacheExtractsOnce(t *testing.T) {
	var calls atomic.Int32
	input := func(ctx context.Context, variant string, unit workspace.Unit) (string, error) {
		calls.Add(1)
		return "[ 1] .text." + variant + "_" + unit.ID, nil
	}
	c := NewCache(input, CodeMatcher)
	unit := workspace.Unit{ID: "a.o"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := c.Symbols(context.Background(), "v1", unit)
			assert.NoError(t, err)
			assert.Equal(t, []string{"v1_a.o"}, m.Symbols())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	_, err := c.Symbols(context.Background(), "v2", unit)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheRemembersFailure(t *testing.T) {
	boom := errors.New("readelf failed")
	var calls int
	c := NewCache(func(ctx context.Context, variant string, unit workspace.Unit) (string, error) {
		calls++
		return "", boom
	}, CodeMatcher)

	for i := 0; i < 2; i++ {
		_, err := c.Symbols(context.Background(), "v1", workspace.Unit{ID: "a.o"})
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 1, calls)
}
