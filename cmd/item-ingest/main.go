// Command item-ingest bulk-imports catalog items from gzip-compressed JSON
// lines files, skipping names that already exist in the catalog.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/repository"
)

const (
	bloomFPR      = 0.001
	minBloomSize  = 10_000
	progressEvery = 100_000
	maxLineSize   = 1 << 20

	defaultBatchSize = 5000
)

// catalog is the slice of the item repository the importer needs.
type catalog interface {
	Names(ctx context.Context) ([]string, error)
	ExistingNames(ctx context.Context, names []string) ([]string, error)
	Insert(ctx context.Context, items []item.Item) (int64, error)
}

// stats summarises one import run.
type stats struct {
	Read       int
	Invalid    int
	Duplicates int
	Existing   int
	Inserted   int64
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		batchSize   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog files")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "glob selecting catalog files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch", defaultBatchSize, "items per COPY batch")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil || len(files) == 0 {
		lg.Fatal("No catalog files found", zap.String("dir", dataDir), zap.String("pattern", pattern), zap.Error(err))
	}

	if err := run(ctx, lg, files, databaseURL, batchSize); err != nil {
		lg.Error("Item ingest failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, files []string, databaseURL string, batchSize int) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	imp := newImporter(repository.NewItemRepository(pool), lg, batchSize)
	st, err := imp.Run(ctx, files)
	if err != nil {
		return err
	}
	lg.Info("Item ingest completed",
		zap.Int("read", st.Read),
		zap.Int("invalid", st.Invalid),
		zap.Int("duplicates", st.Duplicates),
		zap.Int("existing", st.Existing),
		zap.Int64("inserted", st.Inserted),
	)
	return nil
}

type importer struct {
	catalog   catalog
	lg        *zap.Logger
	batchSize int
}

func newImporter(c catalog, lg *zap.Logger, batchSize int) *importer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &importer{catalog: c, lg: lg, batchSize: batchSize}
}

// Run parses files concurrently, drops names seen earlier in the import or
// already in the catalog, and inserts the rest in file order.
func (imp *importer) Run(ctx context.Context, files []string) (stats, error) {
	var st stats

	parsed, invalid, err := imp.parseFiles(ctx, files)
	if err != nil {
		return st, errors.Wrap(err, "parse files")
	}
	st.Invalid = invalid

	known, err := imp.catalogFilter(ctx)
	if err != nil {
		return st, errors.Wrap(err, "build catalog filter")
	}

	// Bloom positives are only candidates; the catalog confirms them below.
	var (
		fresh []item.Item
		maybe []string
		seen  = make(map[string]struct{})
	)
	for _, items := range parsed {
		st.Read += len(items)
		for _, it := range items {
			if _, dup := seen[it.Name]; dup {
				st.Duplicates++
				continue
			}
			seen[it.Name] = struct{}{}
			if known.TestString(it.Name) {
				maybe = append(maybe, it.Name)
			}
			fresh = append(fresh, it)
		}
	}

	existing, err := imp.confirmExisting(ctx, maybe)
	if err != nil {
		return st, errors.Wrap(err, "confirm existing names")
	}
	if len(existing) > 0 {
		kept := fresh[:0]
		for _, it := range fresh {
			if _, ok := existing[it.Name]; ok {
				st.Existing++
				continue
			}
			kept = append(kept, it)
		}
		fresh = kept
	}
	imp.lg.Info("Deduplicated",
		zap.Int("candidates", len(maybe)),
		zap.Int("existing", st.Existing),
		zap.Int("new", len(fresh)),
	)

	for start := 0; start < len(fresh); start += imp.batchSize {
		end := min(start+imp.batchSize, len(fresh))
		n, err := imp.catalog.Insert(ctx, fresh[start:end])
		if err != nil {
			return st, errors.Wrapf(err, "insert batch at %d", start)
		}
		st.Inserted += n
		imp.lg.Info("Write progress", zap.Int64("written", st.Inserted), zap.Int("total", len(fresh)))
	}
	return st, nil
}

// catalogFilter loads every existing name into a bloom filter.
func (imp *importer) catalogFilter(ctx context.Context) (*bloom.BloomFilter, error) {
	names, err := imp.catalog.Names(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list names")
	}
	filter := bloom.NewWithEstimates(uint(max(len(names), minBloomSize)), bloomFPR)
	for _, name := range names {
		filter.AddString(name)
	}
	imp.lg.Info("Catalog filter built", zap.Int("names", len(names)))
	return filter, nil
}

func (imp *importer) confirmExisting(ctx context.Context, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for start := 0; start < len(names); start += imp.batchSize {
		end := min(start+imp.batchSize, len(names))
		found, err := imp.catalog.ExistingNames(ctx, names[start:end])
		if err != nil {
			return nil, err
		}
		for _, name := range found {
			out[name] = struct{}{}
		}
	}
	return out, nil
}

// parseFiles reads every file concurrently. Results keep the file order.
func (imp *importer) parseFiles(ctx context.Context, files []string) ([][]item.Item, int, error) {
	parsed := make([][]item.Item, len(files))
	invalid := make([]int, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			lg := imp.lg.With(zap.String("file", filepath.Base(path)))
			items, bad, err := readFile(ctx, lg, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			lg.Info("File parsed", zap.Int("items", len(items)), zap.Int("invalid", bad))
			parsed[i], invalid[i] = items, bad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, n := range invalid {
		total += n
	}
	return parsed, total, nil
}

// readFile decodes one JSON object per line. Malformed lines are logged and
// counted, blank lines are ignored.
func readFile(ctx context.Context, lg *zap.Logger, path string) ([]item.Item, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, 0, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var (
		items   []item.Item
		invalid int
		lineNo  int
	)
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		it, err := parseItem(line)
		if err != nil {
			invalid++
			lg.Warn("Skip invalid line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		items = append(items, it)
		if len(items)%progressEvery == 0 {
			lg.Info("Parse progress", zap.Int("items", len(items)))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "scan")
	}
	return items, invalid, nil
}

// parseItem decodes {"name": ..., "price": ..., "description": ...}. Price
// may be a JSON string or number and is rounded to cents.
func parseItem(line []byte) (item.Item, error) {
	var (
		it       item.Item
		hasPrice bool
	)
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := d.Str()
			it.Name = strings.TrimSpace(v)
			return err
		case "description":
			v, err := d.Str()
			it.Description = v
			return err
		case "price":
			price, err := decodePrice(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			it.Price, hasPrice = price, true
			return nil
		default:
			return d.Skip()
		}
	})
	switch {
	case err != nil:
		return item.Item{}, err
	case it.Name == "":
		return item.Item{}, errors.New("name is required")
	case !hasPrice:
		return item.Item{}, errors.New("price is required")
	case it.Price.IsNegative():
		return item.Item{}, errors.Errorf("negative price %s", it.Price)
	}
	it.Price = it.Price.Round(2)
	return it, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s", d.Next())
	}
}
