package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/config"
	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/logging"
	obs "github.com/KamdynS/heartcrew/observability"
	"github.com/KamdynS/heartcrew/observability/prom"
	"github.com/KamdynS/heartcrew/outcome"
	serverhttp "github.com/KamdynS/heartcrew/server/http"
	"github.com/KamdynS/heartcrew/tools"
	"github.com/KamdynS/heartcrew/tools/heart"
)

const spanLimit = 1024

func setup(path string) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	obs.SetTracer(obs.NewDefaultTracer(obs.WithSpanLimit(spanLimit), obs.WithSpanLogger(logger)))
	return cfg, logger, nil
}

func handleRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := configFlag(fs)
	symptoms := fs.String("symptoms", "", "Patient symptoms and history; read from stdin when empty")
	plain := fs.Bool("plain", false, "Print the final answer without markdown rendering")
	fs.Parse(args)

	cfg, logger, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Println(failStyle.Render("❌ Error: " + err.Error() + "!"))
		fmt.Printf("Please make sure you have a .env file with %s=your_key_here\n", config.KeyVar(cfg.Provider))
		return err
	}

	printBanner(os.Stdout)
	metrics := obs.NewDefaultMetrics()
	obs.SetMetrics(metrics)

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Testing tools before starting...")
	printChecks(os.Stdout, heart.Check(ctx, a.registry), true)

	patientData := *symptoms
	if patientData == "" {
		patientData, err = prompt(os.Stdin, os.Stdout, "\nEnter heart-related symptoms and history: ")
		if err != nil {
			return err
		}
	}

	fmt.Println("\nProcessing with AI agents and ML model...")
	fmt.Println(rule)
	rec, err := a.clinic.Consult(ctx, patientData)
	fmt.Println("\n" + rule)
	if err != nil {
		fmt.Println(failStyle.Render("❌ Error running crew: " + err.Error()))
		if rec != nil {
			fmt.Printf("Consultation %s was stored with the error.\n", rec.ID)
		}
		return err
	}
	if rec.Treatment == "" {
		fmt.Println("❌ No results generated. Check the errors above.")
		return nil
	}
	fmt.Println(headingStyle.Render("########## FINAL RESULTS ##########"))
	fmt.Println(renderMarkdown(rec.Treatment, *plain))
	if rec.Prediction != nil && rec.Prediction.Label != "" {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("Model prediction: %s · consultation %s", rec.Prediction.Label, rec.ID)))
	}
	st := metrics.GetStats()
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d model and tool calls · %d tokens", st.Requests, st.TokensUsed)))
	return nil
}

func handleCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	cfg, logger, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	reg, _, err := buildTools(cfg, logger)
	if err != nil {
		return err
	}
	fmt.Println(rule)
	fmt.Println("TESTING TOOLS INDEPENDENTLY")
	fmt.Println(rule)
	if !checkTools(ctx, os.Stdout, reg) {
		return errors.New("tool check failed")
	}
	return nil
}

// checkTools prints each tool's result and a summary; it reports whether
// every tool passed.
// handlePredict classifies the built-in minimal patient panel without any
// agents, filling unmeasured features with the default value.
func handlePredict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	cfg, logger, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	return predictSample(ctx, os.Stdout, cfg, logger)
}

func predictSample(ctx context.Context, w io.Writer, cfg *config.Config, logger *log.Logger) error {
	c, artifact, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}
	v := features.Assemble(features.MinimalSample(), artifact.Schema(), features.DefaultFill)
	code, err := c.Predict(ctx, v)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	label := outcome.ResolveLabel(code, artifact.LabelTable())
	obs.MetricsImpl.RecordPrediction(string(label))
	fmt.Fprintf(w, "Predicted Diagnosis: %s\n", label)
	return nil
}

func checkTools(ctx context.Context, w io.Writer, reg tools.Registry) bool {
	results := heart.Check(ctx, reg)
	printChecks(w, results, false)

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "TEST SUMMARY")
	fmt.Fprintln(w, rule)
	ok := true
	for _, r := range results {
		status := okStyle.Render("✅ PASS")
		if !r.OK {
			status = failStyle.Render("❌ FAIL")
			ok = false
		}
		fmt.Fprintf(w, "%s: %s\n", r.Tool, status)
	}
	if ok {
		fmt.Fprintln(w, "\n🎉 All tools working! You can now run heartcrew run")
	} else {
		fmt.Fprintln(w, "\n⚠️  Some tools have issues. Check the errors above.")
	}
	return ok
}

func handleServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := configFlag(fs)
	addr := fs.String("addr", "", "Listen address (overrides config)")
	cors := fs.Bool("cors", false, "Allow cross-origin requests")
	fs.Parse(args)

	cfg, logger, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	exporter := prom.New()
	obs.SetMetrics(exporter)

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := serverhttp.NewServer(a.clinic, a.predictor, a.history, serverhttp.Config{
		Addr:       cfg.HTTPAddr,
		EnableCORS: *cors,
		Metrics:    prom.Handler(exporter),
		Logger:     logger,
	})
	return srv.ListenAndServe(ctx)
}

// prompt reads one line of input. A blank line is returned as is; the
// consultation rejects it.
func prompt(r io.Reader, w io.Writer, question string) (string, error) {
	fmt.Fprint(w, question)
	line, err := bufio.NewReader(r).ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", errors.New("no patient data given")
	case err != nil && !errors.Is(err, io.EOF):
		return "", err
	}
	return strings.TrimSpace(line), nil
}
