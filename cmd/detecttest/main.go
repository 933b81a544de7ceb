// Command detecttest runs document detection on a still image and prints
// every contour's evaluation, the winning outline and its quality report.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	"docscan/internal/capture"
	"docscan/internal/config"
	"docscan/internal/detect"
	"docscan/internal/imageio"
	"docscan/internal/preview"

	"gocv.io/x/gocv"
)

func main() {
	profile := flag.String("p", "default", "Profile name (default, receipt, strict)")
	configPath := flag.String("c", "", "Optional YAML config overlay")
	input := flag.String("f", "", "Path to image")
	overlay := flag.String("overlay", "", "Write a debug overlay to this path")
	rectified := flag.String("rectify", "", "Write the rectified page to this path")
	flag.Parse()

	if *input == "" {
		fmt.Println("Usage: detecttest -f <image> [-p <profile>] [-c <config>] [-overlay out.png] [-rectify page.jpg]")
		os.Exit(1)
	}

	p, err := config.Load(*configPath, *profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load profile: %v\n", err)
		os.Exit(1)
	}

	frame, err := imageio.Load(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer frame.Close()

	fmt.Printf("=== %s (%dx%d, profile %s) ===\n", *input, frame.Cols(), frame.Rows(), p.Name)

	det := detect.NewDetector(p.Detect)
	best, evals, err := det.Trace(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}

	frameArea := float64(frame.Cols() * frame.Rows())
	fmt.Printf("\n%-10s %8s %6s %6s  %s\n", "strategy", "area%", "verts", "score", "result")
	for _, e := range evals {
		result := "ok"
		if e.Rejected != "" {
			result = e.Rejected
		}
		fmt.Printf("%-10s %7.1f%% %6d %6.3f  %s\n",
			e.Strategy, 100*e.Area/frameArea, e.Vertices, e.Score, result)
	}

	if best == nil {
		fmt.Println("\nNo document outline found")
	} else {
		c := best.Corners
		fmt.Printf("\n=== Best candidate (%s, score %.3f) ===\n", best.Strategy, best.Score)
		fmt.Printf("TL (%.0f, %.0f)  TR (%.0f, %.0f)\n", c.TopLeft.X, c.TopLeft.Y, c.TopRight.X, c.TopRight.Y)
		fmt.Printf("BL (%.0f, %.0f)  BR (%.0f, %.0f)\n", c.BottomLeft.X, c.BottomLeft.Y, c.BottomRight.X, c.BottomRight.Y)
		fmt.Printf("Area %.0f px (%.1f%% of frame)\n", best.Area, 100*best.Area/frameArea)
	}

	pipe := p.Pipeline()
	res, err := pipe.Process(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
		os.Exit(1)
	}
	defer res.Close()

	fmt.Printf("\n=== Quality ===\n")
	preview.PrintReport(os.Stdout, res.Report, res.Orientation, false)

	if *overlay != "" {
		if err := writeOverlay(*overlay, frame, best); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write overlay: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nOverlay written to %s\n", *overlay)
	}

	if *rectified != "" && best != nil {
		fmt.Println(pageSummary(res))
		if err := imageio.Save(*rectified, res.Image, p.Capture.JPEGQuality); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write page: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Page written to %s\n", *rectified)
	}
}

// pageSummary describes the saved page. Orientation correction may have
// turned it, so the size is read from the final image, not the warp.
func pageSummary(res *capture.Result) string {
	return fmt.Sprintf("Page size: %dx%d (rotation %d, applied %v)",
		res.Image.Cols(), res.Image.Rows(), res.Orientation.Rotation, res.Orientation.Applied)
}

// writeOverlay draws the winning outline and its corner roles on a copy of
// the frame.
func writeOverlay(path string, frame gocv.Mat, best *detect.Candidate) error {
	out := frame.Clone()
	defer out.Close()

	if best != nil {
		pts := make([]image.Point, 0, len(best.Contour))
		for _, p := range best.Contour {
			pts = append(pts, p.ImagePoint())
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		defer pv.Close()
		gocv.Polylines(&out, pv, true, color.RGBA{R: 40, G: 200, B: 80, A: 255}, 4)

		labels := []string{"TL", "TR", "BR", "BL"}
		for i, c := range best.Corners.Points() {
			gocv.Circle(&out, c.ImagePoint(), 10, color.RGBA{R: 230, G: 60, B: 50, A: 255}, -1)
			gocv.PutText(&out, labels[i], c.ImagePoint().Add(image.Pt(12, -12)),
				gocv.FontHersheySimplex, 1.2, color.RGBA{R: 230, G: 60, B: 50, A: 255}, 3)
		}
	}
	return imageio.Save(path, out, imageio.DefaultJPEGQuality)
}
