//go:build example
// +build example

package main

import (
	"fmt"
	"image/color"
	"log"

	"github.com/golang/geo/r3"
	"github.com/hajimehoshi/ebiten"
	"github.com/hajimehoshi/ebiten/ebitenutil"

	"github.com/XhnPLayer/qex"
)

const (
	screenWidth  = 320
	screenHeight = 320
	cells        = 6
)

var quadMesh *qex.PolyMesh

// buildGrid triangulates a cells x cells planar grid whose UVs equal its
// positions, the simplest mesh the extractor accepts.
func buildGrid() (*qex.TriMesh, []float64, error) {
	n := cells + 1
	points := make([]r3.Vector, 0, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			points = append(points, r3.Vector{X: float64(i), Y: float64(j)})
		}
	}
	var faces [][3]int
	for j := 0; j < cells; j++ {
		for i := 0; i < cells; i++ {
			v00 := j*n + i
			v10 := v00 + 1
			v01 := v00 + n
			v11 := v01 + 1
			faces = append(faces, [3]int{v00, v10, v11}, [3]int{v00, v11, v01})
		}
	}
	m, err := qex.NewTriMesh(points, faces)
	if err != nil {
		return nil, nil, err
	}
	uv := make([]float64, 2*m.HalfedgeCount())
	for h := qex.HalfedgeID(0); int(h) < m.HalfedgeCount(); h++ {
		p := m.Point(m.ToVertex(h))
		uv[2*h] = p.X
		uv[2*h+1] = p.Y
	}
	return m, uv, nil
}

func update(screen *ebiten.Image) error {
	if ebiten.IsDrawingSkipped() {
		return nil
	}
	const margin = 20
	scale := float64(screenWidth-2*margin) / cells
	project := func(v qex.VertexID) (float64, float64) {
		p := quadMesh.Point(v)
		return margin + p.X*scale, screenHeight - margin - p.Y*scale
	}
	for _, f := range quadMesh.Faces() {
		for _, h := range quadMesh.FaceHalfedges(f) {
			x1, y1 := project(quadMesh.FromVertex(h))
			x2, y2 := project(quadMesh.ToVertex(h))
			ebitenutil.DrawLine(screen, x1, y1, x2, y2, color.White)
		}
	}
	return nil
}

func main() {
	m, uv, err := buildGrid()
	if err != nil {
		log.Fatal(err)
	}
	ex := qex.NewExtractor(m)
	quadMesh, err = ex.Extract(uv, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("extracted %d vertices, %d faces\n",
		len(quadMesh.Vertices()), quadMesh.FaceCount())
	fmt.Print(qex.QuadMeshStats(quadMesh))

	if err := ebiten.Run(update, screenWidth, screenHeight, 2, "qex"); err != nil {
		log.Fatal(err)
	}
}
