package main

import (
	"flag"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-mono3d/config"
	"github.com/swdee/go-mono3d/postprocess"
	"github.com/swdee/go-mono3d/preprocess"
	"github.com/swdee/go-mono3d/render"
	"gocv.io/x/gocv"
)

func main() {

	// read in cli flags
	configDir := flag.String("c", "./config", "Directory containing "+config.FileName)
	tensorDir := flag.String("t", "", "Directory of the raw output tensor dumps, defaults to the config directory")
	imgFile := flag.String("i", "", "Camera image the tensors were inferenced from, used for rendering")
	outFile := flag.String("o", "./mono3d-out.jpg", "Output file of the rendered 3D boxes")
	bevFile := flag.String("b", "./mono3d-bev.jpg", "Output file of the rendered bird's eye view, empty to disable")
	inputFile := flag.String("m", "", "Optional output file of the image cropped to the Model input")
	standup := flag.Bool("s", false, "Render the standup 2D boxes as well as the 3D wireframes")
	verbose := flag.Bool("v", false, "Enable debug logging")

	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*configDir)

	if err != nil {
		log.WithError(err).Fatal("Error loading configuration")
	}

	params, err := cfg.Params()

	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	if *tensorDir == "" {
		*tensorDir = *configDir
	}

	tensors, err := cfg.ReadTensors(*tensorDir)

	if err != nil {
		log.WithError(err).Fatal("Error reading output tensors")
	}

	for _, t := range tensors {
		log.Debugf("output tensor %s", t.Attr.String())
	}

	parser := postprocess.NewCenterNet3D(params)
	parser.SetLogger(log)

	var res postprocess.CenterNet3DResult

	start := time.Now()
	err = parser.PostProcess(tensors, &res)

	if err != nil {
		log.WithError(err).Fatal("Post processing failed")
	}

	log.WithFields(logrus.Fields{
		"objects":  len(res.Boxes),
		"duration": time.Since(start),
	}).Info("post processing complete")

	for _, box := range res.Boxes {
		log.WithFields(logrus.Fields{
			"id":    box.ID,
			"class": params.ClassName(box.ClassLabel),
			"score": box.Score,
			"x":     box.X,
			"y":     box.Y,
			"z":     box.Z,
			"w":     box.W,
			"l":     box.L,
			"h":     box.H,
			"yaw":   box.R,
		}).Info("detected object")
	}

	font := render.DefaultFont()

	if *bevFile != "" {
		bev := render.BirdsEyeView(res.Boxes, params.ClassNames, font.Scaled(0.7),
			render.DefaultBEVStyle())

		if ok := gocv.IMWrite(*bevFile, bev); !ok {
			log.WithField("file", *bevFile).Error("Failed to save the bird's eye view")
		}

		bev.Close()
	}

	if *imgFile == "" {
		return
	}

	img := gocv.IMRead(*imgFile, gocv.IMReadColor)

	if img.Empty() {
		log.WithField("file", *imgFile).Fatal("Error reading image")
	}

	defer img.Close()

	if img.Cols() != params.ImageWidth || img.Rows() != params.ImageHeight {
		log.WithFields(logrus.Fields{
			"width":  img.Cols(),
			"height": img.Rows(),
		}).Warn("image size differs from the calibrated camera image")
	}

	if *inputFile != "" {
		writeModelInput(log, img, params, *inputFile)
	}

	render.Boxes3D(&img, res.Boxes, params.ClassNames, font, 2)

	if *standup {
		render.DetectionBoxes(&img, res.DetectResultsInImage(img.Cols(), img.Rows()),
			params.ClassNames, font.Scaled(0.7), 1)
	}

	if ok := gocv.IMWrite(*outFile, img); !ok {
		log.WithField("file", *outFile).Error("Failed to save the image")
	}

	log.WithField("file", filepath.Clean(*outFile)).Info("done")
}

// writeModelInput saves the image as the Model sees it, scaled and cropped
// with the configured image shift
func writeModelInput(log logrus.FieldLogger, img gocv.Mat,
	params postprocess.CenterNet3DParams, file string) {

	resizer := preprocess.NewResizer(img.Cols(), img.Rows(),
		params.ModelInputWidth, params.ModelInputHeight, int(params.ImageShift))
	defer resizer.Close()

	if scale := float32(params.ImageWidth) / float32(params.ModelInputWidth); resizer.OutputScale() != scale {
		log.WithFields(logrus.Fields{
			"image_scale":  resizer.OutputScale(),
			"config_scale": scale,
		}).Warn("image scale differs from the configured output scale")
	}

	input := gocv.NewMat()
	defer input.Close()

	resizer.CropResize(img, &input, render.Black)

	if ok := gocv.IMWrite(file, input); !ok {
		log.WithField("file", file).Error("Failed to save the Model input image")
		return
	}

	log.WithFields(logrus.Fields{
		"file":   file,
		"shift":  resizer.YShift(),
		"padded": resizer.YPad(),
	}).Debug("saved Model input image")
}
