// FILE: lixenwraith/props/cmd/props/main.go
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/lixenwraith/props"
)

var typeFlag = &cli.StringFlag{
	Name:  "type",
	Value: "string",
	Usage: "target shape: a scalar name, or list:<elem> / set:<elem>",
}
var defaultFlag = &cli.StringFlag{
	Name:  "default",
	Usage: "value printed when no source has the property",
}
var rawFlag = &cli.BoolFlag{
	Name:  "raw",
	Usage: "print unexpanded values with the answering source",
}
var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "print a JSON object",
}
var algFlag = &cli.StringFlag{
	Name:  "alg",
	Value: props.AlgorithmAge,
	Usage: "aes-gcm, xchacha20 or age",
}
var recipientFlag = &cli.StringSliceFlag{
	Name:  "recipient",
	Usage: "age recipient (repeatable)",
}
var keyTypeFlag = &cli.StringFlag{
	Name:  "kind",
	Value: "age",
	Usage: "age identity or aes key",
}
var keySizeFlag = &cli.IntFlag{
	Name:  "size",
	Value: 32,
	Usage: "AES key size in bytes: 16, 24 or 32",
}

// scalarShapes maps --type names to descriptors
var scalarShapes = map[string]props.TypeDescriptor{
	"string":   props.TypeOf[string](),
	"bool":     props.TypeOf[bool](),
	"int":      props.TypeOf[int](),
	"int64":    props.TypeOf[int64](),
	"uint":     props.TypeOf[uint](),
	"uint64":   props.TypeOf[uint64](),
	"float":    props.TypeOf[float64](),
	"duration": props.TypeOf[time.Duration](),
	"time":     props.TypeOf[time.Time](),
	"url":      props.TypeOf[*url.URL](),
	"ip":       props.TypeOf[net.IP](),
	"cidr":     props.TypeOf[*net.IPNet](),
	"uuid":     props.TypeOf[uuid.UUID](),
	"regexp":   props.TypeOf[*regexp.Regexp](),
	"bytes":    props.TypeOf[[]byte](),
}

func parseShape(s string) (props.TypeDescriptor, error) {
	kind, elem, isCollection := strings.Cut(s, ":")
	if !isCollection {
		td, ok := scalarShapes[s]
		if !ok {
			return props.TypeDescriptor{}, fmt.Errorf("unknown type %q", s)
		}
		return td, nil
	}

	elemTD, ok := scalarShapes[elem]
	if !ok {
		return props.TypeDescriptor{}, fmt.Errorf("unknown element type %q", elem)
	}
	var td props.TypeDescriptor
	switch kind {
	case "list":
		td = props.ListOf(elemTD)
	case "set":
		td = props.SetOf(elemTD)
	default:
		return props.TypeDescriptor{}, fmt.Errorf("unknown collection %q", kind)
	}
	return td, td.Validate()
}

func main() {
	app := &cli.App{
		Name:  "props",
		Usage: "resolve, inspect and encrypt layered properties",
		Flags: commonFlags,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "resolve one property",
				ArgsUsage: "<name>",
				Flags:     append([]cli.Flag{typeFlag, defaultFlag}, sourceFlags...),
				Action:    getAction,
			},
			{
				Name:   "dump",
				Usage:  "resolve every property the sources can list",
				Flags:  append([]cli.Flag{rawFlag, jsonFlag}, sourceFlags...),
				Action: dumpAction,
			},
			{
				Name:      "encrypt",
				Usage:     "encrypt a value into an enc:<alg>:<payload> property",
				ArgsUsage: "[value] (stdin when omitted)",
				Flags:     []cli.Flag{algFlag, recipientFlag, aesKeyFlag, passphraseFlag},
				Action:    encryptAction,
			},
			{
				Name:   "keygen",
				Usage:  "generate an age identity or an AES key",
				Flags:  []cli.Flag{keyTypeFlag, keySizeFlag},
				Action: keygenAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func getAction(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("get takes exactly one property name")
	}
	logger := setupLogger(cCtx)

	shape, err := parseShape(cCtx.String(typeFlag.Name))
	if err != nil {
		return err
	}

	p, closer, err := buildProperties(cCtx, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	req := props.NewRequest(cCtx.Args().First(), shape)
	if cCtx.IsSet(defaultFlag.Name) {
		def, err := p.Registry().Convert(cCtx.String(defaultFlag.Name), shape)
		if err != nil {
			return fmt.Errorf("invalid --default: %w", err)
		}
		req = req.WithDefault(def)
	}

	value, err := p.Get(cCtx.Context, req)
	if err != nil {
		return err
	}
	out, err := p.Registry().Format(value)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func dumpAction(cCtx *cli.Context) error {
	logger := setupLogger(cCtx)
	p, closer, err := buildProperties(cCtx, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cCtx.Context
	raw := cCtx.Bool(rawFlag.Name)
	values := make(map[string]string)
	var names []string
	var errs []error

	for _, name := range p.Keys() {
		if raw {
			v, source, found := p.Raw(ctx, name)
			if !found {
				continue
			}
			values[name] = v
			names = append(names, name)
			logger.Debug("raw property", "property", name, "source", source)
			continue
		}
		v, err := p.Resolve(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[name] = v
		names = append(names, name)
	}

	if cCtx.Bool(jsonFlag.Name) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(values); err != nil {
			return err
		}
	} else {
		for _, name := range names {
			fmt.Printf("%s=%s\n", name, values[name])
		}
	}
	return errors.Join(errs...)
}

func encryptAction(cCtx *cli.Context) error {
	plaintext, err := readValue(cCtx)
	if err != nil {
		return err
	}

	var out string
	switch alg := cCtx.String(algFlag.Name); alg {
	case props.AlgorithmAESGCM:
		key, err := base64.StdEncoding.DecodeString(cCtx.String(aesKeyFlag.Name))
		if err != nil || len(key) == 0 {
			return fmt.Errorf("aes-gcm needs a base64 --aes-key")
		}
		out, err = props.EncryptAESGCM(key, plaintext)
		if err != nil {
			return err
		}
	case props.AlgorithmXChaCha20:
		pass := cCtx.String(passphraseFlag.Name)
		if pass == "" {
			return fmt.Errorf("xchacha20 needs --passphrase")
		}
		out, err = props.EncryptXChaCha20(pass, plaintext)
		if err != nil {
			return err
		}
	case props.AlgorithmAge:
		recipients := cCtx.StringSlice(recipientFlag.Name)
		if len(recipients) == 0 {
			return fmt.Errorf("age needs at least one --recipient")
		}
		out, err = props.EncryptAge(plaintext, recipients...)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown algorithm %q", alg)
	}

	fmt.Println(out)
	return nil
}

func readValue(cCtx *cli.Context) ([]byte, error) {
	if cCtx.NArg() > 0 {
		return []byte(cCtx.Args().First()), nil
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return []byte(strings.TrimRight(string(data), "\r\n")), nil
}

func keygenAction(cCtx *cli.Context) error {
	switch kind := cCtx.String(keyTypeFlag.Name); kind {
	case "age":
		identity, recipient, err := props.GenerateAgeIdentity()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "public key: %s\n", recipient)
		fmt.Println(identity)
	case "aes":
		size := cCtx.Int(keySizeFlag.Name)
		if size != 16 && size != 24 && size != 32 {
			return fmt.Errorf("invalid AES key size %d", size)
		}
		key := make([]byte, size)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		fmt.Println(base64.StdEncoding.EncodeToString(key))
	default:
		return fmt.Errorf("unknown key kind %q", kind)
	}
	return nil
}
