package handler

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func be(vals ...interface{}) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// testFont builds a font with one triangle glyph and one compound glyph.
func testFont() []byte {
	triangle := be(
		int16(1), int16(0), int16(0), int16(50), int16(80),
		uint16(2), uint16(0),
		[]byte{0x31, 0x33, 0x27},
		[]byte{50, 25},
		[]byte{80},
	)
	compound := be(int16(-1), int16(0), int16(0), int16(1), int16(1))

	glyf := append(append([]byte{}, triangle...), compound...)
	loca := be(uint32(0), uint32(len(triangle)), uint32(len(glyf)))

	head := make([]byte, 54)
	copy(head[12:], be(uint32(0x5F0F3CF5)))
	copy(head[18:], be(uint16(1000)))
	copy(head[50:], be(int16(1)))
	maxp := be(uint32(0x00005000), uint16(2), uint16(0))

	tables := []struct {
		tag  string
		data []byte
	}{{"glyf", glyf}, {"head", head}, {"loca", loca}, {"maxp", maxp}}

	out := be(uint32(0x00010000), uint16(len(tables)), uint16(0), uint16(0), uint16(0))
	offset := 12 + 16*len(tables)
	var body []byte
	for _, tb := range tables {
		out = append(out, tb.tag...)
		out = append(out, be(uint32(0), uint32(offset), uint32(len(tb.data)))...)
		body = append(body, tb.data...)
		for len(body)%4 != 0 {
			body = append(body, 0)
		}
		offset = 12 + 16*len(tables) + len(body)
	}
	return append(out, body...)
}

func TestGlyph(t *testing.T) {
	h := New(testConfig())
	w := post(t, h.Glyph, "/api/glyph?index=0", testFont())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		NumGlyphs  int `json:"numGlyphs"`
		UnitsPerEm int `json:"unitsPerEm"`
		Glyph      struct {
			Index    int `json:"index"`
			Contours [][]struct {
				X       int  `json:"x"`
				Y       int  `json:"y"`
				OnCurve bool `json:"onCurve"`
			} `json:"contours"`
		} `json:"glyph"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.NumGlyphs)
	assert.Equal(t, 1000, resp.UnitsPerEm)
	require.Len(t, resp.Glyph.Contours, 1)
	pts := resp.Glyph.Contours[0]
	require.Len(t, pts, 3)
	assert.Equal(t, [3]int{0, 50, 25}, [3]int{pts[0].X, pts[1].X, pts[2].X})
	assert.Equal(t, [3]int{0, 0, 80}, [3]int{pts[0].Y, pts[1].Y, pts[2].Y})
	assert.True(t, pts[2].OnCurve)
}

func TestGlyph_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   []byte
		status int
	}{
		{"missing index", "/api/glyph", testFont(), http.StatusBadRequest},
		{"index out of range", "/api/glyph?index=9", testFont(), http.StatusNotFound},
		{"compound glyph", "/api/glyph?index=1", testFont(), http.StatusUnprocessableEntity},
		{"not a font", "/api/glyph?index=0", []byte("BM not a font at all"), http.StatusUnprocessableEntity},
	}

	h := New(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h.Glyph, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}
