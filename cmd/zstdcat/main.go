// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cosnicolaou/zstd"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"golang.org/x/crypto/ssh/terminal"
)

type CommonFlags struct {
	MaxWindowSize      int  `subcmd:"max-window-size,8388608,'reject frames whose window exceeds this many bytes'"`
	VerifyChecksum     bool `subcmd:"verify-checksum,true,'verify the per-frame xxh64 content checksum when present'"`
	RejectReservedBits bool `subcmd:"reject-reserved-bits,true,'fail on frames that set a reserved header bit'"`
	Verbose            bool `subcmd:"verbose,false,verbose debug/trace information"`
}

type catFlags struct {
	CommonFlags
}

type unzipFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
}

type noFlags struct{}

var cmdSet *subcmd.CommandSet

func init() {
	catCmd := subcmd.NewCommand("cat",
		subcmd.MustRegisterFlagStruct(&catFlags{}, nil, nil),
		cat, subcmd.AtLeastNArguments(0))
	catCmd.Document(`decompress zstd files or stdin to stdout. Files may be local, on S3 or a URL.`)

	unzipCmd := subcmd.NewCommand("unzip",
		subcmd.MustRegisterFlagStruct(&unzipFlags{}, nil, nil),
		unzip, subcmd.ExactlyNumArguments(1))
	unzipCmd.Document(`decompress a zstd file to a named output (or stdout).`)

	inspectCmd := subcmd.NewCommand("inspect",
		subcmd.MustRegisterFlagStruct(&noFlags{}, nil, nil),
		inspect, subcmd.AtLeastNArguments(1))
	inspectCmd.Document(`walk the frame and block headers of a zstd file without decoding any block content.`)

	cmdSet = subcmd.NewCommandSet(catCmd, unzipCmd, inspectCmd)
	cmdSet.Document(`decompress and inspect zstd files. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

func optsFromCommonFlags(cl *CommonFlags) []zstd.DOption {
	opts := []zstd.DOption{
		zstd.WithMaxWindowSize(cl.MaxWindowSize),
		zstd.WithVerifyChecksum(cl.VerifyChecksum),
		zstd.WithRejectReservedBits(cl.RejectReservedBits),
	}
	if cl.Verbose {
		opts = append(opts, zstd.WithSkippableFrameHandler(func(magic uint32, payload []byte) {
			log.Printf("skippable frame %#x: %d byte payload", magic, len(payload))
		}))
	}
	return opts
}

func openFileOrURL(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, 0, nil, err
		}
		return resp.Body,
			resp.ContentLength,
			func(context.Context) error {
				resp.Body.Close()
				return nil
			},
			nil
	}
	info, err := file.Stat(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	return f.Reader(ctx), info.Size(), f.Close, nil
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}

func cat(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*catFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	opts := optsFromCommonFlags(&cl.CommonFlags)

	if len(args) == 0 {
		rd := zstd.NewReader(os.Stdin, opts...)
		_, err := io.Copy(os.Stdout, rd)
		return err
	}

	errs := &errors.M{}
	for _, inputFile := range args {
		rd, _, readerCleanup, err := openFileOrURL(ctx, inputFile)
		if err != nil {
			errs.Append(err)
			continue
		}
		dc := zstd.NewReader(rd, opts...)
		_, err = io.Copy(os.Stdout, dc)
		errs.Append(err)
		errs.Append(readerCleanup(ctx))
	}
	return errs.Err()
}

func progressBar(ctx context.Context, wr io.Writer, size int64, rd io.Reader) io.Reader {
	if size <= 0 {
		return rd
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(wr),
		progressbar.OptionSetPredictTime(true))
	return io.TeeReader(rd, bar)
}

func unzip(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*unzipFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	opts := optsFromCommonFlags(&cl.CommonFlags)

	rd, size, readerCleanup, err := openFileOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	wr, writerCleanup, err := createFile(ctx, cl.OutputFile)
	if err != nil {
		return err
	}

	var (
		progressWr io.Writer = os.Stdout
		isTTY                = terminal.IsTerminal(int(os.Stdout.Fd()))
	)
	if cl.ProgressBar && (len(cl.OutputFile) > 0 || !isTTY) {
		if !isTTY {
			progressWr = os.Stderr
		}
		rd = progressBar(ctx, progressWr, size, rd)
	}

	dc := zstd.NewReader(rd, opts...)
	errs := &errors.M{}
	_, err = io.Copy(wr, dc)
	errs.Append(err)
	errs.Append(writerCleanup(ctx))
	return errs.Err()
}

func inspect(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)

	errs := &errors.M{}
	for _, name := range args {
		rd, _, readerCleanup, err := openFileOrURL(ctx, name)
		if err != nil {
			errs.Append(err)
			continue
		}
		frames, err := zstd.Inspect(rd)
		readerCleanup(ctx)
		if err != nil {
			errs.Append(fmt.Errorf("%v: %w", name, err))
		}
		for i, f := range frames {
			if f.Skippable {
				fmt.Printf("%v frame[%d]: skippable magic=%#x payload=%d bytes\n", name, i, f.SkippableMagic, f.SkippablePayload)
				continue
			}
			fmt.Printf("%v frame[%d]: window=%d content_size=%v(%d) checksum=%v blocks=%d\n",
				name, i, f.WindowSize, f.HasContentSize, f.ContentSize, f.HasChecksum, len(f.Blocks))
			for j, b := range f.Blocks {
				fmt.Printf("%v   block[%d]: type=%s size=%d last=%v\n", name, j, b.Type, b.Size, b.LastBlock)
			}
		}
	}
	return errs.Err()
}
