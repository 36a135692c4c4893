package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/chenBenjamin97/pose-overlay/pkg/pose"
	"github.com/chenBenjamin97/pose-overlay/pkg/utils"
	"github.com/chenBenjamin97/pose-overlay/pkg/video"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"
)

var (
	//errDecode marks an upload that is not a readable image
	errDecode = errors.New("could not decode image")
	//errTooLarge marks an image upload above utils.MaxUploadSize
	errTooLarge = errors.New("upload too large")
)

//KeypointsResponse is the body of /api/Keypoints
type KeypointsResponse struct {
	Subjects []pose.Subject  `json:"subjects"`
	Primary  []pose.Keypoint `json:"primary"`
}

//SetRouter builds the http routes around p. Every handler shares the same pipeline.
func SetRouter(p *pose.Pipeline, log logrus.FieldLogger) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = utils.MaxUploadSize

	apiRoutes := r.Group("/api")

	apiRoutes.POST("/Annotate", func(ctx *gin.Context) {
		img, name, err := readImage(ctx)
		if err != nil {
			log.Warnf("api/Annotate: %v", err)
			ctx.Status(statusFor(err))
			return
		}
		defer img.Close()

		if _, err := p.ProcessFrame(&img); err != nil {
			log.Errorf("api/Annotate: Could not process '%s', got '%v'", name, err)
			ctx.Status(statusFor(err))
			return
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
		if err != nil {
			log.Errorf("api/Annotate: Could not encode '%s', got '%v'", name, err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		defer buf.Close()
		jpeg := buf.GetBytes()

		dstPath := path.Join(viper.GetString("directory.ready"), utils.BaseName(name)+utils.AnnotatedImageExt)
		if err := os.WriteFile(dstPath, jpeg, 0644); err != nil {
			log.Errorf("api/Annotate: Could not write '%s' file, got '%v'", dstPath, err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		ctx.Data(http.StatusOK, "image/jpeg", jpeg)
	})

	apiRoutes.POST("/Keypoints", func(ctx *gin.Context) {
		img, name, err := readImage(ctx)
		if err != nil {
			log.Warnf("api/Keypoints: %v", err)
			ctx.Status(statusFor(err))
			return
		}
		defer img.Close()

		res, err := p.ProcessFrame(&img)
		if err != nil {
			log.Errorf("api/Keypoints: Could not process '%s', got '%v'", name, err)
			ctx.Status(statusFor(err))
			return
		}

		ctx.JSON(http.StatusOK, KeypointsResponse{Subjects: res.Subjects, Primary: res.Primary})
	})

	apiRoutes.GET("/ReadyImagesNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.ready")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Image", func(ctx *gin.Context) {
		serveNamed(ctx, viper.GetString("directory.ready"), ctx.Query("name"))
	})

	apiRoutes.GET("/UploadedVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	//name is the uploaded video's name, with or without its extension
	apiRoutes.GET("/VideoKeypoints", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName != "" {
			videoName = utils.BaseName(videoName) + utils.KeypointsExt
		}
		ctx.Header("Content-Type", "application/x-ndjson")
		serveNamed(ctx, viper.GetString("directory.keypoints"), videoName)
	})

	apiRoutes.POST("/UploadVideo", func(ctx *gin.Context) {
		file, fHeader, err := ctx.Request.FormFile(utils.VideoFormField)
		if err != nil {
			ctx.Status(http.StatusBadRequest)
			return
		}
		defer file.Close()

		fileName := filepath.Base(fHeader.Filename)
		if existNames, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		} else if utils.InSlice(fileName, existNames) {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		log.Infof("api/UploadVideo: Received new file: name - '%s', size - %v Bytes", fileName, fHeader.Size)

		fileBytes, err := io.ReadAll(file)
		if err != nil {
			log.Errorf("api/UploadVideo: Could not read request's body, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		srcFilePath := path.Join(viper.GetString("directory.source"), fileName)
		if err = os.WriteFile(srcFilePath, fileBytes, 0444); err != nil {
			log.Errorf("api/UploadVideo: Could not write '%s' file, got '%v'", srcFilePath, err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		go video.Tag(p, fileName, log)
		ctx.Status(http.StatusAccepted)
	})

	return r
}

//serveNamed serves the file called name from dir. Directories in name are ignored.
func serveNamed(ctx *gin.Context, dir, name string) {
	if name == "" {
		ctx.Status(http.StatusNotAcceptable) //missing url parameter
		return
	}

	filePath := path.Join(dir, filepath.Base(name))
	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			ctx.Status(http.StatusNotFound)
		} else {
			ctx.Status(http.StatusInternalServerError)
		}
		return
	}

	ctx.File(filePath)
}

//readImage decodes the image uploaded in the request's image field. The returned Mat is owned by the caller.
func readImage(ctx *gin.Context) (gocv.Mat, string, error) {
	if ctx.Request.ContentLength > utils.MaxUploadSize {
		return gocv.Mat{}, "", fmt.Errorf("body of %d bytes: %w", ctx.Request.ContentLength, errTooLarge)
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, utils.MaxUploadSize)

	fHeader, err := ctx.FormFile(utils.ImageFormField)
	if err != nil {
		return gocv.Mat{}, "", fmt.Errorf("missing '%s' field: %w", utils.ImageFormField, errDecode)
	}
	if !utils.HasImageExt(fHeader.Filename) {
		return gocv.Mat{}, "", fmt.Errorf("'%s' is not an image file: %w", fHeader.Filename, errDecode)
	}

	data, err := readAll(fHeader)
	if err != nil {
		return gocv.Mat{}, "", err
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			img.Close()
		}
		return gocv.Mat{}, "", fmt.Errorf("'%s': %w", fHeader.Filename, errDecode)
	}
	return img, fHeader.Filename, nil
}

func readAll(fHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("opening '%s', got '%v'", fHeader.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading '%s', got '%v'", fHeader.Filename, err)
	}
	return data, nil
}

//statusFor maps a pipeline error to the http status reported to the client
func statusFor(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errDecode):
		return http.StatusBadRequest
	case errors.Is(err, pose.ErrInvalidImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pose.ErrInference):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
