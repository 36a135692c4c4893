package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chenBenjamin97/pose-overlay/pkg/pose"
	"github.com/chenBenjamin97/pose-overlay/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

type fakeEngine struct {
	out *mat.Dense
	err error
}

func (f *fakeEngine) Infer(blob gocv.Mat) (*mat.Dense, error) { return f.out, f.err }
func (f *fakeEngine) Close() error                           { return nil }

//oneSubject has its nose at model (320, 250), which is (640, 220) in a 1280x720 frame
func oneSubject() *mat.Dense {
	row := make([]float64, pose.RowWidth(pose.NumKeypoints))
	copy(row, []float64{200, 160, 300, 360, 0.9, 0, 320, 250, 0.9})
	return mat.NewDense(1, len(row), row)
}

func setupDirs(t *testing.T) (ready, source string) {
	t.Helper()
	ready, source = t.TempDir(), t.TempDir()
	viper.Set("directory.ready", ready)
	viper.Set("directory.source", source)
	viper.Set("directory.keypoints", t.TempDir())
	t.Cleanup(viper.Reset)
	return ready, source
}

func newRouter(t *testing.T, engine pose.Engine) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	p, err := pose.NewPipeline(pose.DefaultConfig(), engine, logger)
	require.NoError(t, err)
	return SetRouter(p, logger)
}

func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	defer img.Close()
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	require.NoError(t, err)
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func multipartRequest(t *testing.T, url, field, fileName string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestKeypoints_MapsToOriginalFrame(t *testing.T) {
	setupDirs(t)
	r := newRouter(t, &fakeEngine{out: oneSubject()})

	rec := serve(r, multipartRequest(t, "/api/Keypoints", "image", "frame.jpg", jpegBytes(t, 1280, 720)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp KeypointsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Subjects, 1)
	require.Len(t, resp.Primary, pose.NumKeypoints)
	assert.InDelta(t, 640, resp.Primary[0].X, 1)
	assert.InDelta(t, 220, resp.Primary[0].Y, 1)
	assert.InDelta(t, 0.9, resp.Primary[0].Conf, 1e-9)
}

func TestKeypoints_NoSubject(t *testing.T) {
	setupDirs(t)
	r := newRouter(t, &fakeEngine{})

	rec := serve(r, multipartRequest(t, "/api/Keypoints", "image", "frame.jpg", jpegBytes(t, 64, 64)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subjects":[],"primary":null}`, rec.Body.String())
}

func TestKeypoints_ErrorStatuses(t *testing.T) {
	setupDirs(t)

	tests := []struct {
		name     string
		engine   *fakeEngine
		fileName string
		data     []byte
		want     int
	}{
		{"not an image", &fakeEngine{}, "frame.jpg", []byte("definitely not a jpeg"), http.StatusBadRequest},
		{"wrong extension", &fakeEngine{}, "frame.txt", jpegBytes(t, 32, 32), http.StatusBadRequest},
		{"engine failure", &fakeEngine{err: errors.New("no session")}, "frame.jpg", jpegBytes(t, 32, 32), http.StatusServiceUnavailable},
		{"malformed output", &fakeEngine{out: mat.NewDense(1, 5, nil)}, "frame.jpg", jpegBytes(t, 32, 32), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, tt.engine)
			rec := serve(r, multipartRequest(t, "/api/Keypoints", "image", tt.fileName, tt.data))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(pose.ErrInvalidImage))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(pose.ErrMalformedOutput))
	assert.Equal(t, http.StatusBadRequest, statusFor(errDecode))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(errTooLarge))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk full")))
}

func TestAnnotate_StoresAndReturnsJPEG(t *testing.T) {
	ready, _ := setupDirs(t)
	r := newRouter(t, &fakeEngine{out: oneSubject()})

	rec := serve(r, multipartRequest(t, "/api/Annotate", "image", "court.png", jpegBytes(t, 1280, 720)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	img, err := gocv.IMDecode(rec.Body.Bytes(), gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 1280, img.Cols())
	assert.Equal(t, 720, img.Rows())

	assert.FileExists(t, filepath.Join(ready, "court.jpg"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/ReadyImagesNames", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["court.jpg"]`, rec.Body.String())

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/Image?name=court.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())
}

func TestImage_Errors(t *testing.T) {
	setupDirs(t)
	r := newRouter(t, &fakeEngine{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/Image", nil))
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/Image?name=missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadVideo_RefusesDuplicates(t *testing.T) {
	_, source := setupDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "game.mp4"), []byte("x"), 0644))
	r := newRouter(t, &fakeEngine{})

	rec := serve(r, multipartRequest(t, "/api/UploadVideo", "video", "game.mp4", []byte("y")))
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/UploadVideo", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKeypoints_RefusesOversizedBody(t *testing.T) {
	setupDirs(t)
	engine := &fakeEngine{out: oneSubject()}
	r := newRouter(t, engine)

	req := multipartRequest(t, "/api/Keypoints", "image", "frame.jpg", jpegBytes(t, 32, 32))
	req.ContentLength = utils.MaxUploadSize + 1
	rec := serve(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadedVideosNames(t *testing.T) {
	_, source := setupDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "game.mp4"), []byte("x"), 0644))
	r := newRouter(t, &fakeEngine{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/UploadedVideosNames", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["game.mp4"]`, rec.Body.String())
}

func TestVideoKeypoints(t *testing.T) {
	setupDirs(t)
	lines := "{\"frame\":0,\"keypoints\":null}\n"
	require.NoError(t, os.WriteFile(filepath.Join(viper.GetString("directory.keypoints"), "game.jsonl"), []byte(lines), 0644))
	r := newRouter(t, &fakeEngine{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/VideoKeypoints?name=game.mp4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, lines, rec.Body.String())
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/VideoKeypoints?name=other.mp4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/VideoKeypoints", nil))
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}
