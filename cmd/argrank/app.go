package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/config"
	dbRedis "github.com/kailas-cloud/argrank/internal/db/redis"
	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/passage"
	"github.com/kailas-cloud/argrank/internal/metrics"
	"github.com/kailas-cloud/argrank/internal/repository/ann"
	"github.com/kailas-cloud/argrank/internal/repository/embcache"
	"github.com/kailas-cloud/argrank/internal/repository/lexical"
	ceTransport "github.com/kailas-cloud/argrank/internal/transport/crossencoder"
	openaiEmb "github.com/kailas-cloud/argrank/internal/transport/openai"
	ceuc "github.com/kailas-cloud/argrank/internal/usecase/crossencoder"
	embeddinguc "github.com/kailas-cloud/argrank/internal/usecase/embedding"
	"github.com/kailas-cloud/argrank/internal/usecase/prf"
	"github.com/kailas-cloud/argrank/internal/usecase/retrieval"
	"github.com/kailas-cloud/argrank/internal/usecase/tracker"
)

// app is the composition root shared by the commands. Dependencies are built
// lazily so offline commands only connect to what they use.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	store    *dbRedis.Store
	base     *openaiEmb.Embedder
	encoder  domain.Encoder
	passages *passage.Index
}

func newApp(cfg config.Config, logger *zap.Logger) *app {
	return &app{cfg: cfg, logger: logger}
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// openStore connects to the search store and waits for it to answer.
func (a *app) openStore(ctx context.Context) (*dbRedis.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	db := a.cfg.Database
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    db.Addrs,
		Username: db.Username,
		Password: db.Password,
		DB:       db.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(db.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}

	a.logger.Info("Connected to database",
		zap.String("driver", db.Driver),
		zap.Strings("addrs", db.Addrs),
	)
	a.store = store
	return store, nil
}

// embedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func (a *app) embedder(ctx context.Context) (domain.Encoder, error) {
	if a.encoder != nil {
		return a.encoder, nil
	}

	ec := a.cfg.Embedding
	a.base = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.Provider.APIKey,
		BaseURL:    ec.Provider.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider.Name,
		Logger:     a.logger,
	})

	var inner domain.Encoder = a.base
	if ec.Cache {
		store, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(ec.CacheTTLSec) * time.Second
		inner = embcache.New(a.base, store, a.cfg.Storage.KeyPrefix, ec.Model, ttl, metrics.EmbeddingCacheTotal, a.logger)
	}

	a.encoder = embeddinguc.NewInstrumentedEmbedder(inner, ec.Provider.Name, ec.Model, a.logger)
	a.logger.Info("Embedder created",
		zap.String("provider", ec.Provider.Name),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
		zap.Bool("cache", ec.Cache),
	)
	return a.encoder, nil
}

// passageIndex loads the passage lookup tables once.
func (a *app) passageIndex() (*passage.Index, error) {
	if a.passages != nil {
		return a.passages, nil
	}

	g, err := passage.ParseGrouping(a.cfg.Passages.Grouping)
	if err != nil {
		return nil, err
	}
	idx, err := passage.LoadIndex(a.cfg.Passages.LookupPath, g)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}

	a.logger.Info("Passage index loaded",
		zap.String("path", a.cfg.Passages.LookupPath),
		zap.String("grouping", string(g)),
		zap.Int("rows", idx.Rows()),
		zap.Int("documents", len(idx.Documents())),
	)
	a.passages = idx
	return idx, nil
}

func (a *app) lexicalRepo(ctx context.Context) (*lexical.Repo, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	ic := a.cfg.Index
	return lexical.New(store, lexical.Options{
		IndexName:    ic.Lexical,
		ContentField: ic.ContentField,
		IDField:      ic.IDField,
		KeyPrefix:    ic.LexicalKeyPrefix,
	}), nil
}

func (a *app) annRepo(ctx context.Context) (*ann.Repo, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	ic := a.cfg.Index
	return ann.New(store, ann.Options{
		IndexName:   ic.Passages,
		VectorField: ic.VectorField,
		KeyPrefix:   ic.PassageKeyPrefix,
	}), nil
}

func (a *app) retrievalService(ctx context.Context) (*retrieval.Service, error) {
	lex, err := a.lexicalRepo(ctx)
	if err != nil {
		return nil, err
	}
	enc, err := a.embedder(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := a.annRepo(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := a.passageIndex()
	if err != nil {
		return nil, err
	}

	rc := a.cfg.Retrieval
	a.logger.Debug("BM25 parameters are fixed by the lexical index",
		zap.Float64("k1", rc.K1), zap.Float64("b", rc.B))
	return retrieval.New(lex, enc, idx, rows, retrieval.Options{
		LexicalK:  rc.LexicalK,
		SemanticK: rc.SemanticK,
	}, a.logger), nil
}

func (a *app) prfService(ctx context.Context, opts prf.Options) (*prf.Service, error) {
	enc, err := a.embedder(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := a.annRepo(ctx)
	if err != nil {
		return nil, err
	}
	passages, err := a.passageIndex()
	if err != nil {
		return nil, err
	}
	return prf.New(enc, idx, passages, opts, a.logger), nil
}

func (a *app) crossEncoderService(opts ceuc.Options) (*ceuc.Service, error) {
	passages, err := a.passageIndex()
	if err != nil {
		return nil, err
	}
	cc := a.cfg.CrossEncoder
	scorer := ceTransport.NewClient(&ceTransport.Config{
		BaseURL: cc.BaseURL,
		APIKey:  cc.APIKey,
		Model:   cc.Model,
		Timeout: time.Duration(cc.TimeoutSec) * time.Second,
		Logger:  a.logger,
	})
	return ceuc.New(scorer, passages, opts, a.logger), nil
}

func (a *app) trackerOptions() (tracker.Options, error) {
	tc := a.cfg.Tracker
	w, err := tracker.ParseWeighting(tc.Weighting)
	if err != nil {
		return tracker.Options{}, err
	}
	return tracker.Options{
		Lookback:  tc.Lookback,
		KNN:       tc.KNN,
		SearchK:   tc.SearchK,
		Weighting: w,
	}, nil
}

func (a *app) prfOptions() prf.Options {
	return prf.Options{RelDocs: a.cfg.PRF.RelDocs, K: a.cfg.PRF.K, Cutoff: a.cfg.PRF.Cutoff}
}
