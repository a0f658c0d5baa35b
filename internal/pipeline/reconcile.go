package pipeline

import (
	"fmt"
	"regexp"

	"github.com/jonathan/pressroom/internal/types"
)

var markerPattern = regexp.MustCompile(`\[\[image-\d+\]\]\n?`)

// runReconcile pairs generated image bytes with authored metadata and
// interpolates asset references into the draft's placeholder markers.
func (o *Orchestrator) runReconcile(job *types.GenerationJob) {
	raw := make([][]byte, len(job.Images))
	for i := range job.Images {
		raw[i] = job.Images[i].Data
	}
	body, images := Reconcile(job.Draft, raw, job.ImageMetas)
	job.Draft = body
	job.Images = images
}

// Reconcile matches images to metadata positionally, padding with generic
// metadata when counts mismatch, and substitutes one markdown image reference
// per placeholder marker in order. Markers beyond the image count are
// removed so no placeholder survives into published content.
func Reconcile(body string, images [][]byte, metas []types.ImageMeta) (string, []types.GeneratedImage) {
	paired := make([]types.GeneratedImage, len(images))
	for i, data := range images {
		meta := genericMeta(i + 1)
		if i < len(metas) {
			meta = metas[i]
			if meta.AltText == "" {
				meta.AltText = genericMeta(i + 1).AltText
			}
			if meta.Filename == "" {
				meta.Filename = genericMeta(i + 1).Filename
			}
		}
		paired[i] = types.GeneratedImage{
			Data:     data,
			AltText:  meta.AltText,
			Caption:  meta.Caption,
			Filename: meta.Filename,
		}
	}

	next := 0
	body = markerPattern.ReplaceAllStringFunc(body, func(marker string) string {
		if next >= len(paired) {
			return ""
		}
		img := paired[next]
		next++
		ref := fmt.Sprintf("![%s](%s)", img.AltText, img.Filename)
		if img.Caption != "" {
			ref += fmt.Sprintf("\n*%s*", img.Caption)
		}
		return ref + "\n"
	})

	return body, paired
}

func genericMeta(n int) types.ImageMeta {
	return types.ImageMeta{
		AltText:  fmt.Sprintf("Illustration %d", n),
		Filename: fmt.Sprintf("image-%d.png", n),
	}
}
