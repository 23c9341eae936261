package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashenfad/hadooptree"
	"github.com/ashenfad/hadooptree/config"
	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/feature/yaml"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/ashenfad/hadooptree/metrics"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/ashenfad/hadooptree/tree/filestore"
	"github.com/ashenfad/hadooptree/tree/json"
	"github.com/ashenfad/hadooptree/tree/redisstore"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/redis.v5"
)

type buildCmdConfig struct {
	*rootCmdConfig
	inputConfig
	objective   int
	fieldsInput string
	output      string
	workDir     string
	redisAddr   string
	redisPrefix string
	metricsAddr string
	knobs       *pflag.FlagSet
}

func buildCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &buildCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Grow a tree from a dataset",
		Long:  `Grow a classification tree from a dataset to predict one of its categorical fields.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				exit(1, err)
			}
			log := config.logger()
			cfg, err := config.growthConfig()
			if err != nil {
				exit(2, err)
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ds, err := config.dataset(log)
			if err != nil {
				exit(3, err)
			}
			defer config.inputConfig.Close()
			runID := uuid.New().String()
			store, err := config.store(runID)
			if err != nil {
				exit(4, err)
			}
			defer store.Close(ctx)
			collector, err := config.serveMetrics(ctx, log)
			if err != nil {
				exit(5, err)
			}
			g := &hadooptree.Grower{
				Config:  cfg,
				Runner:  mapreduce.NewRunner(cfg.Workers, log),
				Store:   store,
				Storage: config.storage(),
				Logger:  log,
				Metrics: collector,
				RunID:   runID,
			}
			var res *hadooptree.Result
			if config.fieldsInput != "" {
				var fields []*feature.Field
				fields, err = yaml.ReadFieldsFromFile(config.fieldsInput)
				if err != nil {
					exit(6, err)
				}
				res, err = g.GrowFromFields(ctx, ds, fields, config.objective)
			} else {
				res, err = g.Grow(ctx, ds, config.objective)
			}
			if err != nil {
				exit(7, fmt.Errorf("growing the tree: %v", err))
			}
			log.WithFields(logrus.Fields{
				"rounds":   res.Rounds,
				"splits":   res.Splits,
				"leaves":   res.Leaves,
				"subtrees": res.Subtrees,
				"nodes":    res.Tree.Len(),
			}).Info("done")
			if v, ok, err := snapshotVersion(ctx, store); err != nil {
				log.WithError(err).Warn("retrieving the version of the published tree")
			} else if ok {
				log.WithFields(logrus.Fields{"run": runID, "version": v}).Info("tree published")
			}
			if err = outputTree(config.output, res.Tree); err != nil {
				exit(8, err)
			}
		},
	}
	config.addFlags(cmd.Flags())
	cmd.Flags().IntVarP(&(config.objective), "objective", "c", -1, "index of the categorical field the tree should predict (required)")
	cmd.Flags().StringVarP(&(config.fieldsInput), "fields", "f", "", "path to a YML file with the statistics of the fields of the dataset, to skip collecting them")
	cmd.Flags().StringVarP(&(config.output), "output", "o", "", "path to a file to which the tree will be written in JSON format after every change (defaults to writing it to STDOUT when done)")
	cmd.Flags().StringVarP(&(config.workDir), "work-dir", "w", "", "directory where filtered datasets are written (defaults to memory)")
	cmd.Flags().StringVar(&(config.redisAddr), "redis", "", "address of a redis server on which to publish the tree snapshots")
	cmd.Flags().StringVar(&(config.redisPrefix), "redis-prefix", "hadooptree", "prefix of the redis keys holding the tree snapshots, followed by the run id")
	cmd.Flags().StringVar(&(config.metricsAddr), "metrics-addr", "", "address on which to serve prometheus metrics while growing")
	config.knobs = knobFlags()
	cmd.Flags().AddFlagSet(config.knobs)
	return cmd
}

func knobFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("knobs", pflag.ContinueOnError)
	fs.Int64(config.SplitFloorKey, 0, "number of instances each side of a split must exceed (required, here or in config)")
	fs.Int64(config.SubtreeFloorKey, config.DefaultSubtreeFloor, "node size below which subtrees are grown locally")
	fs.Int(config.NumericSplitsKey, config.DefaultNumericSplits, "number of candidate thresholds tried on numeric fields")
	fs.Float64(config.LeafSubtreeRatioKey, config.DefaultLeafSubtreeRatio, "share of settled over active instances triggering a subtree phase")
	fs.Int(config.WorkersKey, 0, "number of workers running each job (defaults to the number of CPUs)")
	return fs
}

func (bcc *buildCmdConfig) Validate() error {
	if err := bcc.inputConfig.Validate(); err != nil {
		return err
	}
	if bcc.objective < 0 {
		return fmt.Errorf("required objective flag was not set")
	}
	return nil
}

func (bcc *buildCmdConfig) growthConfig() (config.Config, error) {
	v, err := config.NewViper(bcc.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if err = v.BindPFlags(bcc.knobs); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

// snapshotVersion returns the number of snapshots published on the store,
// for stores that keep count of them
func snapshotVersion(ctx context.Context, s tree.Store) (int64, bool, error) {
	rs, ok := s.(*redisstore.Store)
	if !ok {
		return 0, false, nil
	}
	v, err := rs.Version(ctx)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (bcc *buildCmdConfig) store(runID string) (tree.Store, error) {
	if bcc.redisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: bcc.redisAddr})
		if err := rc.Ping().Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %v", bcc.redisAddr, err)
		}
		return redisstore.New(rc, fmt.Sprintf("%s:%s", bcc.redisPrefix, runID), json.NewCodec()), nil
	}
	if bcc.output != "" {
		return filestore.New(bcc.output, json.NewCodec()), nil
	}
	return tree.NewMemoryStore(json.NewCodec()), nil
}

func (bcc *buildCmdConfig) storage() dataset.Storage {
	if bcc.workDir != "" {
		return dataset.NewDirStorage(bcc.workDir)
	}
	return dataset.NewMemoryStorage()
}

func (bcc *buildCmdConfig) serveMetrics(ctx context.Context, log logrus.FieldLogger) (*metrics.Collector, error) {
	if bcc.metricsAddr == "" {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: bcc.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("serving metrics")
		}
	}()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.WithField("addr", bcc.metricsAddr).Info("serving metrics")
	return collector, nil
}

func outputTree(outputPath string, t *tree.Tree) error {
	if outputPath == "" {
		return json.WriteTree(t, os.Stdout)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.WriteTree(t, f)
}
