// esl-render draws a shelf label to a PNG file so layouts can be checked
// without a device. With --publish it also pushes the bitmap to that label's
// channel using the server's transport configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	container "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Container"
	renderer "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Renderer"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	name    string
	price   string
	out     string
	font    string
	caption string
	publish string
}

func parseFlags(args []string, stdout io.Writer) (*options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("esl-render", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVarP(&opts.name, "name", "n", "New Item", "product name")
	flagSet.StringVarP(&opts.price, "price", "p", "0.00", "price shown after the currency prefix")
	flagSet.StringVarP(&opts.out, "out", "o", "label.png", "output file")
	flagSet.StringVar(&opts.font, "font", "", "TTF/OTF font file (default: embedded Go Bold)")
	flagSet.StringVar(&opts.caption, "caption", renderer.DefaultLayout().HeaderCaption, "header caption")
	flagSet.StringVar(&opts.publish, "publish", "", "also publish the bitmap to this label address")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return &opts, nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	layout := renderer.DefaultLayout()
	layout.HeaderCaption = opts.caption

	image, err := renderer.New(layout, opts.font).Render(opts.name, opts.price)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, image, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", opts.out, len(image))

	if opts.publish == "" {
		return nil
	}
	return publish(opts.publish, image, stdout)
}

func publish(address string, image []byte, stdout io.Writer) error {
	ctr, err := container.NewContainer()
	if err != nil {
		return err
	}
	defer ctr.Shutdown(context.Background())

	pub, err := ctr.GetPublisher()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := pub.Publish(ctx, address, image); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "published to %s\n", pub.Topic(address))
	return nil
}
