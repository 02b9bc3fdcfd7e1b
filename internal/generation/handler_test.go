package generation

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restyle-platform/restyle/internal/api"
)

func buildMultipart(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile(name, name+".jpg")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestParseMultipart(t *testing.T) {
	photo := []byte{0xff, 0xd8, 0xff, 0xe0}

	t.Run("room photo with defaults", func(t *testing.T) {
		body, contentType := buildMultipart(t, map[string][]byte{roomPhotoField: photo}, nil)
		r := httptest.NewRequest("POST", "/api/v1/generations", body)
		r.Header.Set("Content-Type", contentType)

		req, err := parseMultipart(r)
		require.NoError(t, err)
		assert.Equal(t, photo, req.RoomPhoto)
		assert.Equal(t, DefaultStyle, req.Style)
		assert.Equal(t, DefaultRoomType, req.RoomType)
		assert.Empty(t, req.Materials)
	})

	t.Run("explicit fields override defaults", func(t *testing.T) {
		body, contentType := buildMultipart(t,
			map[string][]byte{roomPhotoField: photo},
			map[string]string{styleField: "industrial", roomTypeField: "kitchen", descriptionField: "more light"})
		r := httptest.NewRequest("POST", "/api/v1/generations", body)
		r.Header.Set("Content-Type", contentType)

		req, err := parseMultipart(r)
		require.NoError(t, err)
		assert.Equal(t, "industrial", req.Style)
		assert.Equal(t, "kitchen", req.RoomType)
		assert.Equal(t, "more light", req.Description)
	})

	t.Run("missing room photo is rejected", func(t *testing.T) {
		body, contentType := buildMultipart(t, nil, map[string]string{styleField: "modern"})
		r := httptest.NewRequest("POST", "/api/v1/generations", body)
		r.Header.Set("Content-Type", contentType)

		_, err := parseMultipart(r)
		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.Code)
	})

	t.Run("material photos map to their surfaces", func(t *testing.T) {
		body, contentType := buildMultipart(t, map[string][]byte{
			roomPhotoField:    photo,
			floorPhotoField:   {0x01},
			wallPhotoField:    {0x02},
			ceilingPhotoField: {0x03},
		}, nil)
		r := httptest.NewRequest("POST", "/api/v1/generations", body)
		r.Header.Set("Content-Type", contentType)

		req, err := parseMultipart(r)
		require.NoError(t, err)
		require.Len(t, req.Materials, 3)

		byPosition := map[MaterialPosition][]byte{}
		for _, m := range req.Materials {
			byPosition[m.Position] = m.Data
		}
		assert.Equal(t, []byte{0x03}, byPosition[PositionCeiling])
		assert.Equal(t, []byte{0x01}, byPosition[PositionFloor])
		assert.Equal(t, []byte{0x02}, byPosition[PositionWall])
	})

	t.Run("non-multipart body is rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/v1/generations", bytes.NewBufferString(`{"style":"modern"}`))
		r.Header.Set("Content-Type", "application/json")

		_, err := parseMultipart(r)
		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.Code)
	})
}
