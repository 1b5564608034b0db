package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDefaults(t *testing.T) {
	cfg, err := Merge(Options{InputStream: nopStream{}})
	require.NoError(t, err)

	want := DefaultConfiguration()
	want.InputStream = nopStream{}
	assert.Equal(t, want, cfg)

	readers := make([]string, 0, len(cfg.Decoder.Readers))
	for _, r := range cfg.Decoder.Readers {
		readers = append(readers, r.Format)
	}
	assert.Equal(t, []string{
		"ean_reader", "ean_8_reader", "ean_reader", "upc_reader", "upc_e_reader", "code_128_reader",
	}, readers)
	assert.Equal(t, []string{"ean_5_reader", "ean_2_reader"}, cfg.Decoder.Readers[2].Supplements)
	assert.False(t, cfg.Decoder.Multiple)
}

func TestMergeReplacesWholeSubObject(t *testing.T) {
	cfg, err := Merge(Options{
		InputStream: nopStream{},
		Locator:     &Locator{PatchSize: "large"},
		Decoder:     &Decoder{Readers: []ReaderSpec{Reader("code_39_reader")}},
	})
	require.NoError(t, err)

	// halfSample is not merged from the default sub-object.
	assert.Equal(t, Locator{PatchSize: "large", HalfSample: false}, cfg.Locator)
	assert.Equal(t, []ReaderSpec{{Format: "code_39_reader"}}, cfg.Decoder.Readers)
	assert.Equal(t, DefaultFrequency, cfg.Frequency)
	assert.Equal(t, DefaultNumOfWorkers, cfg.NumOfWorkers)
}

func TestMergeScalars(t *testing.T) {
	cfg, err := Merge(Options{InputStream: nopStream{}, NumOfWorkers: Int(0), Frequency: Int(25)})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.NumOfWorkers)
	assert.Equal(t, 25, cfg.Frequency)
	assert.True(t, cfg.Locate)
}

func TestMergeDoesNotAliasCallerDecoder(t *testing.T) {
	dec := &Decoder{Readers: []ReaderSpec{Reader("ean_reader", "ean_2_reader")}}
	cfg, err := Merge(Options{InputStream: nopStream{}, Decoder: dec})
	require.NoError(t, err)

	dec.Readers[0].Format = "changed"
	dec.Readers[0].Supplements[0] = "changed"
	assert.Equal(t, "ean_reader", cfg.Decoder.Readers[0].Format)
	assert.Equal(t, "ean_2_reader", cfg.Decoder.Readers[0].Supplements[0])
}

func TestMergeValidation(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"missing stream", Options{}, "inputStream"},
		{"negative workers", Options{InputStream: nopStream{}, NumOfWorkers: Int(-1)}, "numOfWorkers"},
		{"zero frequency", Options{InputStream: nopStream{}, Frequency: Int(0)}, "frequency"},
		{"bad patch size", Options{InputStream: nopStream{}, Locator: &Locator{PatchSize: "huge"}}, "locator.patchSize"},
		{"empty patch size", Options{InputStream: nopStream{}, Locator: &Locator{HalfSample: true}}, "locator.patchSize"},
		{"no readers", Options{InputStream: nopStream{}, Decoder: &Decoder{}}, "decoder.readers"},
		{"blank reader", Options{InputStream: nopStream{}, Decoder: &Decoder{Readers: []ReaderSpec{{}}}}, "decoder.readers[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(tt.opts)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEngineInitErrorUnwrap(t *testing.T) {
	inner := &ConfigurationError{Field: "x", Reason: "y"}
	err := &EngineInitError{Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "engine initialization failed")
}
