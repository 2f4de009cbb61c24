// coaldump prints the structural layout of a Coal frame: its header
// counts, every value-type layout, and every cluster description. It never
// resolves a field against a Go type, so it can inspect a frame produced
// by any program that speaks the format.
package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/dustin/go-humanize"
	flag "github.com/juju/gnuflag"
	"github.com/sirupsen/logrus"

	"github.com/coal-serialization/coal"
)

func main() {
	verbose := flag.Bool("v", false, "log parse progress at debug level")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.coal>\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Flags:")
		flag.PrintDefaults()
	}
	flag.Parse(true)

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: coaldump [-v] <file.coal>")
		os.Exit(1)
	}

	data, err := ioutil.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "coaldump:", err)
		os.Exit(1)
	}

	info, err := coal.Inspect(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coaldump:", err)
		os.Exit(1)
	}

	printFrame(info)
}

func printFrame(info *coal.FrameInfo) {
	fmt.Printf("coal %d.%d\n", info.VersionMajor, info.VersionMinor)
	fmt.Printf("blob:       %s\n", humanize.Bytes(uint64(info.BlobSize)))
	fmt.Printf("valueTypes: %d\n", info.ValueTypeCount)
	fmt.Printf("clusters:   %d\n", info.ClusterCount)
	fmt.Printf("objects:    %d\n", info.ObjectCount)

	for _, vt := range info.ValueTypes {
		fmt.Printf("\nstruct %s\n", vt.Name)
		printFields(vt.Fields)
	}

	for _, c := range info.Clusters {
		header := c.Name
		if c.Supertype != "" {
			header = fmt.Sprintf("%s : %s", c.Name, c.Supertype)
		}
		fmt.Printf("\nclass %s (%s instances)\n", header, humanize.Comma(int64(c.InstanceCount)))
		printFields(c.Fields)
	}
}

func printFields(fields []coal.FrameField) {
	for _, f := range fields {
		fmt.Printf("  %-24s %s\n", f.Name, f.Encoding)
	}
}
