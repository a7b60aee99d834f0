package questions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/moogle/go/clients"
	"github.com/mcdev12/moogle/go/internal/models"
)

const sheet = "Question,OptionA,OptionB,OptionC,OptionD,Answer\n" +
	"Capital of France?,Paris,Rome,Berlin,Madrid,A\n" +
	"\"2 + 2, roughly?\",3,4,5,22,b\n" +
	"Missing option,x,y,,z,C\n" +
	"Bad letter,a,b,c,d,E\n" +
	"Short row,a,b\n" +
	"Largest planet?, Mars , Venus , Jupiter , Earth , c \n"

func TestParseCSV(t *testing.T) {
	qs, err := ParseCSV(strings.NewReader(sheet))
	require.NoError(t, err)

	require.Len(t, qs, 3)
	assert.Equal(t, models.Question{
		Text:         "Capital of France?",
		Options:      [4]string{"Paris", "Rome", "Berlin", "Madrid"},
		CorrectIndex: 0,
	}, qs[0])
	assert.Equal(t, "2 + 2, roughly?", qs[1].Text)
	assert.Equal(t, 1, qs[1].CorrectIndex)
	assert.Equal(t, [4]string{"Mars", "Venus", "Jupiter", "Earth"}, qs[2].Options)
	assert.Equal(t, 2, qs[2].CorrectIndex)
}

func TestParseCSV_ColumnOrderAndBOM(t *testing.T) {
	in := "\ufeffanswer,optiond,optionc,optionb,optiona,question\nD,4,3,2,1,Pick four\n"

	qs, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, [4]string{"1", "2", "3", "4"}, qs[0].Options)
	assert.Equal(t, 3, qs[0].CorrectIndex)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "missing header", in: "Question,OptionA,OptionB,OptionC,Answer\nq,a,b,c,A\n"},
		{name: "no valid rows", in: "Question,OptionA,OptionB,OptionC,OptionD,Answer\nq,a,b,c,d,Z\n"},
		{name: "header only", in: "Question,OptionA,OptionB,OptionC,OptionD,Answer\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrSourceMalformed)
		})
	}
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sheet.csv":
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte(sheet))
		case "/junk":
			_, _ = w.Write([]byte("<html>not a sheet</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewLoader(5 * time.Second)
	ctx := context.Background()

	qs, err := loader.LoadURL(ctx, srv.URL+"/sheet.csv")
	require.NoError(t, err)
	assert.Len(t, qs, 3)

	_, err = loader.LoadURL(ctx, srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = loader.LoadURL(ctx, srv.URL+"/junk")
	assert.ErrorIs(t, err, ErrSourceMalformed)

	_, err = loader.LoadURL(ctx, "not a url")
	assert.ErrorIs(t, err, ErrSourceMalformed)
}

func TestLoadURL_SheetTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sheet))
	}))
	defer srv.Close()

	c := clients.NewBaseClient("")
	c.SetMaxBytes(int64(len(sheet) - 20))

	_, err := NewLoaderWithFetcher(c).LoadURL(context.Background(), srv.URL+"/sheet.csv")
	assert.ErrorIs(t, err, ErrSourceMalformed)
	assert.ErrorIs(t, err, clients.ErrBodyTooLarge)
	assert.NotErrorIs(t, err, ErrSourceUnavailable)
}

func TestLoadURL_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewLoader(time.Second).LoadURL(context.Background(), addr+"/sheet.csv")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestValidate(t *testing.T) {
	good := models.Question{Text: " Q ", Options: [4]string{"a", "b", "c", " d "}, CorrectIndex: 3}

	qs, err := Validate([]models.Question{good})
	require.NoError(t, err)
	assert.Equal(t, "Q", qs[0].Text)
	assert.Equal(t, "d", qs[0].Options[3])

	_, err = Validate(nil)
	assert.ErrorIs(t, err, ErrSourceMalformed)

	bad := good
	bad.CorrectIndex = 4
	_, err = Validate([]models.Question{good, bad})
	assert.ErrorIs(t, err, ErrSourceMalformed)

	blank := good
	blank.Options[1] = "  "
	_, err = Validate([]models.Question{blank})
	assert.ErrorIs(t, err, ErrSourceMalformed)
}
