package pipeline

import (
	"context"
	"log"
	"unicode/utf8"

	"screen-capture-ocr/src/delivery"
	"screen-capture-ocr/src/logutil"
)

// Runner runs OCR once; *ocr.Dispatcher satisfies it.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// RecognizePipeline runs the OCR binary and routes its text.
type RecognizePipeline struct {
	OCR Runner
	// Router is used when Run is given a nil router.
	Router *delivery.Router
}

func (p *RecognizePipeline) Name() string { return string(Recognize) }

func (p *RecognizePipeline) Run(ctx context.Context, router *delivery.Router) (Result, error) {
	if router == nil {
		router = p.Router
	}
	if router == nil {
		router = &delivery.Router{}
	}

	text, err := p.OCR.Run(ctx)
	if err := router.Route(text, err); err != nil {
		return Result{}, err
	}
	log.Printf("OCR extracted text (%d chars): %q", utf8.RuneCountInString(text), logutil.Sanitize(text))
	return Result{Text: text}, nil
}
