package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"go.xrstf.de/memorable_milestones/pkg/client"
	"go.xrstf.de/memorable_milestones/pkg/fetcher"
	"go.xrstf.de/memorable_milestones/pkg/github"
	"go.xrstf.de/memorable_milestones/pkg/metrics"
	"go.xrstf.de/memorable_milestones/pkg/milestones"
	"go.xrstf.de/memorable_milestones/pkg/processor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type options struct {
	repositories  repositoryList
	debugOnly     bool
	templatesFile string
	now           string
	schedule      string
	listenAddr    string
	reportFile    string
	debugLog      bool
}

type AppContext struct {
	client   *client.Client
	registry *milestones.Registry
	recorder *metrics.Recorder
	now      time.Time
	options  *options
}

func main() {
	opt := options{
		listenAddr: ":9612",
	}

	flag.Var(&opt.repositories, "repo", "repository (owner/name format) to manage, can be given multiple times (defaults to $GITHUB_REPOSITORY)")
	flag.BoolVar(&opt.debugOnly, "debug-only", opt.debugOnly, "compute and report everything, but do not close or create any milestones")
	flag.StringVar(&opt.templatesFile, "templates", opt.templatesFile, "YAML file with global milestone definitions (defaults to the built-in list)")
	flag.StringVar(&opt.now, "now", opt.now, "pretend the current time is this RFC3339 timestamp")
	flag.StringVar(&opt.schedule, "schedule", opt.schedule, "cron schedule (e.g. \"@daily\"); if given, keep running and serve metrics instead of running once")
	flag.StringVar(&opt.listenAddr, "listen", opt.listenAddr, "address and port to serve metrics on when running on a schedule")
	flag.StringVar(&opt.reportFile, "report", opt.reportFile, "write the results of each run as YAML into this file")
	flag.BoolVar(&opt.debugLog, "debug", opt.debugLog, "enable more verbose logging")
	flag.Parse()

	// setup logging
	var log = logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC1123,
	})

	if opt.debugLog {
		log.SetLevel(logrus.DebugLevel)
	}

	// validate CLI flags
	if len(opt.repositories) == 0 {
		if env := os.Getenv("GITHUB_REPOSITORY"); env != "" {
			if err := opt.repositories.Set(env); err != nil {
				log.Fatalf("Invalid $GITHUB_REPOSITORY: %v", err)
			}
		}
	}

	if len(opt.repositories) == 0 {
		log.Fatal("No -repo defined.")
	}

	var now time.Time
	if opt.now != "" {
		if opt.schedule != "" {
			log.Fatal("-now cannot be combined with -schedule.")
		}

		parsed, err := time.Parse(time.RFC3339, opt.now)
		if err != nil {
			log.Fatalf("Invalid -now: %v", err)
		}
		now = parsed.UTC()
	}

	registry := milestones.DefaultRegistry()
	if opt.templatesFile != "" {
		var err error

		registry, err = milestones.LoadRegistry(opt.templatesFile)
		if err != nil {
			log.Fatalf("Failed to load templates: %v", err)
		}
	}

	token := githubToken()
	if len(token) == 0 {
		log.Fatal("No GITHUB_TOKEN environment variable defined.")
	}

	// setup API client
	ctx := context.Background()

	client, err := client.NewClient(ctx, log.WithField("component", "client"), token)
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	appCtx := AppContext{
		client:   client,
		registry: registry,
		recorder: metrics.NewRecorder(),
		now:      now,
		options:  &opt,
	}

	if opt.schedule == "" {
		if !runOnce(appCtx, log) {
			os.Exit(1)
		}

		return
	}

	startScheduler(appCtx, log)

	prometheus.MustRegister(metrics.NewCollector(appCtx.recorder, appCtx.client))

	log.Printf("Starting server on %s…", opt.listenAddr)

	http.Handle("/metrics", promhttp.Handler())
	log.Fatal(http.ListenAndServe(opt.listenAddr, nil))
}

func startScheduler(ctx AppContext, log logrus.FieldLogger) {
	schedule, err := cron.ParseStandard(ctx.options.schedule)
	if err != nil {
		log.Fatalf("Invalid -schedule: %v", err)
	}

	cronLog := cron.PrintfLogger(log.WithField("component", "scheduler"))

	// the initial run and the scheduled runs share the same wrapped job,
	// so they can never overlap
	job := cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(func() {
		runOnce(ctx, log)
	}))

	scheduler := cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cronLog))
	scheduler.Schedule(schedule, job)
	scheduler.Start()

	go job.Run()
}

// runOnce processes all repositories sequentially and returns false if
// any of them failed.
func runOnce(ctx AppContext, log logrus.FieldLogger) bool {
	results := []*processor.Result{}
	success := true

	for _, repo := range ctx.options.repositories {
		repoLog := log.WithField("repo", repo.FullName())

		result, err := processRepository(ctx, repoLog, repo)
		ctx.recorder.Record(repo.FullName(), result, err, ctx.options.debugOnly, time.Now())

		if err != nil {
			repoLog.Errorf("Failed to process milestones: %v", err)
			success = false
		}

		if result != nil {
			results = append(results, result)
			logResult(repoLog, result)
		}
	}

	if ctx.options.reportFile != "" {
		if err := writeReport(ctx.options.reportFile, results); err != nil {
			log.Errorf("Failed to write report: %v", err)
			success = false
		}
	}

	return success
}

func processRepository(ctx AppContext, log logrus.FieldLogger, repo *github.Repository) (*processor.Result, error) {
	pager := fetcher.NewPager(ctx.client, repo, log.WithField("component", "fetcher"))

	p := processor.New(ctx.client, pager.Page, repo, ctx.registry, log, processor.Options{
		DebugOnly: ctx.options.debugOnly,
		Now:       ctx.now,
	})

	return p.Run()
}

func logResult(log logrus.FieldLogger, result *processor.Result) {
	log = log.WithFields(logrus.Fields{
		"operations-left": result.OperationsLeft,
		"closed":          len(result.ClosedMilestones),
		"to-add":          len(result.MilestonesToAdd),
	})

	if result.Aborted {
		log.Warn("Run stopped early, results are incomplete.")
		return
	}

	log.Info("Run completed.")
}
