// Command crndump inspects and extracts CRN compressed texture files.
//
// Usage:
//
//	crndump info <input.crn>                Display CRN header metadata
//	crndump dump [options] <input.crn>      Write a level's raw block data as DDS
//	crndump png [options] <input.crn>       Decompress a level to PNG
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepteams/crnlib"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "dump":
		err = runDump(os.Args[2:])
	case "png":
		err = runPNG(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "crndump: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "crndump: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  crndump info <input.crn>               Display header metadata
  crndump dump [options] <input.crn>     Write a level's raw blocks as DDS
  crndump png [options] <input.crn>      Decompress a level to PNG

Use "-" as input to read from stdin.

Run "crndump <command> -h" for command-specific options.
`)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func readInput(path string) ([]byte, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

func runInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("info: missing input file\nUsage: crndump info <input.crn>")
	}
	inputPath := args[0]

	data, err := readInput(inputPath)
	if err != nil {
		return fmt.Errorf("info: reading input: %w", err)
	}

	feat, err := crnlib.GetFeatures(data)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	name := inputPath
	if inputPath == "-" {
		name = "<stdin>"
	}

	fmt.Printf("File:       %s\n", name)
	fmt.Printf("Format:     %s\n", feat.Format)
	fmt.Printf("Dimensions: %d x %d\n", feat.Width, feat.Height)
	fmt.Printf("Levels:     %d\n", feat.LevelCount)
	fmt.Printf("Faces:      %d\n", feat.FaceCount)
	fmt.Printf("File size:  %d bytes\n", len(data))

	return nil
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	level := fs.Int("level", 0, "mip level to extract")
	output := fs.String("o", "", `output path (default: <input>.dds, "-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("dump: missing input file\nUsage: crndump dump [options] <input.crn>")
	}
	inputPath := fs.Arg(0)

	data, err := readInput(inputPath)
	if err != nil {
		return fmt.Errorf("dump: reading input: %w", err)
	}

	archive, err := crnlib.Decode(data)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	feat := archive.Features()

	levelBytes, err := archive.Level(*level)
	if err != nil {
		return fmt.Errorf("dump: decoding level %d: %w", *level, err)
	}

	width, height := feat.Width, feat.Height
	for i := 0; i < *level; i++ {
		width = max(1, width>>1)
		height = max(1, height>>1)
	}

	dds := buildDDS(width, height, feat.Format, archive.BlockSize(), levelBytes)

	outputPath := *output
	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outputPath = base + ".dds"
	}

	if outputPath == "-" {
		_, err := os.Stdout.Write(dds)
		return err
	}

	if err := os.WriteFile(outputPath, dds, 0o644); err != nil {
		return fmt.Errorf("dump: writing %s: %w", outputPath, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", outputPath, len(dds))
	return nil
}

func runPNG(args []string) error {
	fs := flag.NewFlagSet("png", flag.ContinueOnError)
	level := fs.Int("level", 0, "mip level to decompress")
	face := fs.Int("face", 0, "cubemap face to decompress")
	output := fs.String("o", "", `output path (default: <input>.png, "-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("png: missing input file\nUsage: crndump png [options] <input.crn>")
	}
	inputPath := fs.Arg(0)

	data, err := readInput(inputPath)
	if err != nil {
		return fmt.Errorf("png: reading input: %w", err)
	}

	archive, err := crnlib.Decode(data)
	if err != nil {
		return fmt.Errorf("png: %w", err)
	}
	feat := archive.Features()

	levelBytes, err := archive.Level(*level)
	if err != nil {
		return fmt.Errorf("png: decoding level %d: %w", *level, err)
	}

	width, height := feat.Width, feat.Height
	for i := 0; i < *level; i++ {
		width = max(1, width>>1)
		height = max(1, height>>1)
	}

	faceSize := len(levelBytes) / feat.FaceCount
	if *face < 0 || *face >= feat.FaceCount {
		return fmt.Errorf("png: face %d out of range [0,%d)", *face, feat.FaceCount)
	}
	faceBytes := levelBytes[*face*faceSize : (*face+1)*faceSize]

	img, err := decompressBlocks(faceBytes, width, height, feat.Format)
	if err != nil {
		return fmt.Errorf("png: %w", err)
	}

	outputPath := *output
	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outputPath = base + ".png"
	}

	var out io.Writer
	if outputPath == "-" {
		out = os.Stdout
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if err := encodePNG(out, img); err != nil {
		return fmt.Errorf("png: encoding: %w", err)
	}
	if outputPath != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", outputPath)
	}
	return nil
}
