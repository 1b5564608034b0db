package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
)

func (testCtx *TestContext) saveBarcode(format gozxing.BarcodeFormat, name, contents string) error {
	img, err := testutil.RenderBarcode(format, contents, testutil.DefaultBarcodeImageConfig())
	if err != nil {
		return err
	}
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) anEAN13Image(name, contents string) error {
	return testCtx.saveBarcode(gozxing.BarcodeFormat_EAN_13, name, contents)
}

func (testCtx *TestContext) anEAN8Image(name, contents string) error {
	return testCtx.saveBarcode(gozxing.BarcodeFormat_EAN_8, name, contents)
}

func (testCtx *TestContext) aCode128Image(name, contents string) error {
	return testCtx.saveBarcode(gozxing.BarcodeFormat_CODE_128, name, contents)
}

func (testCtx *TestContext) aBlankImage(name string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return imaging.Save(testutil.BlankImage(320, 240), path)
}

func (testCtx *TestContext) aFileWithContent(name, content string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// RegisterImageSteps registers steps that prepare input files.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an EAN-13 image "([^"]*)" encoding "([^"]*)"$`, testCtx.anEAN13Image)
	sc.Step(`^an EAN-8 image "([^"]*)" encoding "([^"]*)"$`, testCtx.anEAN8Image)
	sc.Step(`^a Code 128 image "([^"]*)" encoding "([^"]*)"$`, testCtx.aCode128Image)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileWithContent)
}
