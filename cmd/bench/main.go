package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cvrp/internal/aco"
	"cvrp/internal/baseline"
	"cvrp/internal/bench"
	"cvrp/internal/cvrp"
	"cvrp/internal/ea"
	"cvrp/internal/neighbor"
	"cvrp/internal/opt"
	"cvrp/internal/pso"
	"cvrp/internal/sa"
	"cvrp/internal/telemetry"
	"cvrp/internal/ts"
	"cvrp/internal/tssa"
)

// Фабрики; конфигурация копируется, запуски идут параллельно

func newEAFactory(cfg ea.Config) bench.Factory {
	return func(seed int64, sink telemetry.Sink) (opt.Solver, error) {
		c := cfg
		c.Sink = sink
		return ea.New(c, rand.New(rand.NewSource(seed)))
	}
}

func newSAFactory(cfg sa.Config) bench.Factory {
	return func(seed int64, sink telemetry.Sink) (opt.Solver, error) {
		c := cfg
		c.Sink = sink
		return sa.New(c, rand.New(rand.NewSource(seed)))
	}
}

func newTSFactory(cfg ts.Config) bench.Factory {
	return func(seed int64, sink telemetry.Sink) (opt.Solver, error) {
		c := cfg
		c.Sink = sink
		return ts.New(c, rand.New(rand.NewSource(seed)))
	}
}

func newTSSAFactory(cfg tssa.Config) bench.Factory {
	return func(seed int64, sink telemetry.Sink) (opt.Solver, error) {
		c := cfg
		c.Sink = sink
		return tssa.New(c, rand.New(rand.NewSource(seed)))
	}
}

func newACOFactory(cfg aco.Config) bench.Factory {
	return func(seed int64, sink telemetry.Sink) (opt.Solver, error) {
		c := cfg
		c.Sink = sink
		return aco.New(c, rand.New(rand.NewSource(seed)))
	}
}

func newPSOFactory(cfg pso.Config) bench.Factory {
	return func(seed int64, sink telemetry.Sink) (opt.Solver, error) {
		c := cfg
		c.Sink = sink
		return pso.New(c, rand.New(rand.NewSource(seed)))
	}
}

func newRandomFactory(samples int) bench.Factory {
	return func(seed int64, _ telemetry.Sink) (opt.Solver, error) {
		return baseline.NewRandom(samples, rand.New(rand.NewSource(seed)))
	}
}

func newGreedyFactory() bench.Factory {
	return func(seed int64, _ telemetry.Sink) (opt.Solver, error) {
		return baseline.NewGreedy(rand.New(rand.NewSource(seed)))
	}
}

func main() {
	envCfg, err := loadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка чтения переменных окружения")
	}
	if err := setupLogging(envCfg); err != nil {
		log.Fatal().Err(err).Msg("Неизвестный уровень логирования")
	}

	// CLI флаги для настройки параметров алгоритмов и политики запуска
	var (
		out          = flag.String("out", envCfg.Out, "путь к выходному CSV-файлу")
		xlsxOut      = flag.String("xlsx", envCfg.XLSX, "путь к выходной книге XLSX; пусто — не писать")
		metricsOut   = flag.String("metrics", envCfg.Metrics, "путь к файлу метрик Prometheus (textfile); пусто — не писать")
		telemetryDir = flag.String("telemetry_dir", envCfg.TelemetryDir, "каталог для телеметрии каждого запуска; пусто — не писать")
		instances    = flag.String("instances", "", "файлы экземпляров в формате TSPLIB (через запятую)")
		pairs        = flag.String("pairs", "32x100,64x100", "случайные экземпляры: количество узлов (с депо) Х вместимость (через запятую)")
		algos        = flag.String("algos", "EA,SA,TS,TSSA,RANDOM,GREEDY", "список алгоритмов: EA, SA, TS, TSSA, ACO, PSO, RANDOM, GREEDY (через запятую)")
		runs         = flag.Int("runs", envCfg.Runs, "количество запусков каждого алгоритма (с разными сидами)")
		baseSeed     = flag.Int64("seed", envCfg.Seed, "базовый сид для запусков алгоритмов")
		instanceSeed = flag.Int64("instance_seed", 777, "базовый сид для генерации случайных экземпляров")
		workers      = flag.Int("workers", envCfg.Workers, "количество параллельных запусков")
		perRunTO     = flag.Duration("per_run_timeout", 0, "таймаут одного запуска; 0 — без ограничения")

		// --- Эволюционный алгоритм ---
		eaPop      = flag.Int("ea_pop", 100, "размер популяции")
		eaGen      = flag.Int("ea_gen", 100, "количество поколений")
		eaCx       = flag.Float64("ea_cx", 0.7, "вероятность применения кроссовера")
		eaMut      = flag.Float64("ea_mut", 0.1, "вероятность мутации")
		eaCross    = flag.String("ea_crossover", "ox", "кроссовер: ox | pmx")
		eaMutation = flag.String("ea_mutation", "swap", "мутация: swap | inverse")
		eaSel      = flag.String("ea_selector", "tournament", "селекция: tournament | roulette | annealed")
		eaTour     = flag.Int("ea_tour", 5, "размер турнирной выборки")
		eaSelT0    = flag.Float64("ea_sel_t0", 1.0, "начальная температура рулетки с отжигом")
		eaSelAlpha = flag.Float64("ea_sel_alpha", 0.99, "коэффициент охлаждения рулетки с отжигом")

		// --- Алгоритм имитации отжига ---
		saIter      = flag.Int("sa_iter", 1000, "общее количество итераций")
		saNeigh     = flag.String("sa_neigh", "swap", "тип окрестности: swap | inverse")
		saNeighbors = flag.Int("sa_neighbors", 10, "размер окрестности")
		saCooling   = flag.String("sa_cooling", "exponential", "охлаждение: exponential | linear")
		saT0        = flag.Float64("sa_t0", 1.0, "начальная температура")
		saAlpha     = flag.Float64("sa_alpha", 0.999, "коэффициент охлаждения (alpha)")

		// --- Табу-поиск ---
		tsIter      = flag.Int("ts_iter", 500, "общее количество итераций")
		tsTabu      = flag.Int("ts_tabu", 20, "длина табу-списка")
		tsNeigh     = flag.String("ts_neigh", "swap", "тип окрестности: swap | inverse")
		tsNeighbors = flag.Int("ts_neighbors", 20, "размер окрестности")

		// --- Гибрид табу-поиска и отжига ---
		tssaPhases    = flag.Int("tssa_phases", 10, "количество фаз")
		tssaInterval  = flag.Int("tssa_interval", 50, "количество итераций в фазе")
		tssaTabu      = flag.Int("tssa_tabu", 20, "длина табу-списка")
		tssaNeigh     = flag.String("tssa_neigh", "swap", "тип окрестности: swap | inverse")
		tssaNeighbors = flag.Int("tssa_neighbors", 20, "размер окрестности")
		tssaCooling   = flag.String("tssa_cooling", "exponential", "охлаждение: exponential | linear")
		tssaT0        = flag.Float64("tssa_t0", 1.0, "начальная температура")
		tssaAlpha     = flag.Float64("tssa_alpha", 0.995, "коэффициент охлаждения (alpha)")

		// --- Муравьиный алгоритм ---
		acoIter  = flag.Int("aco_iter", 100, "количество итераций")
		acoAnts  = flag.Int("aco_ants", 20, "количество муравьёв")
		acoA     = flag.Float64("aco_alpha", 1.0, "коэффициент alpha (влияние феромонов)")
		acoB     = flag.Float64("aco_beta", 2.0, "коэффициент beta (влияние близости)")
		acoRho   = flag.Float64("aco_rho", 0.20, "коэффициент rho (испарения феромонов)")
		acoQ     = flag.Float64("aco_q", 1000.0, "константа отложения феромонов")
		acoTau0  = flag.Float64("aco_tau0", 1.0, "начальный уровень феромонов")
		acoCandK = flag.Int("aco_k", 0, "размер списка кандидатов (0 — все оставшиеся)")

		// --- Рой частиц ---
		psoIter      = flag.Int("pso_iter", 200, "количество итераций")
		psoParticles = flag.Int("pso_particles", 40, "количество частиц")
		psoW         = flag.Float64("pso_w", 0.729, "коэффициент W (инерция)")
		psoC1        = flag.Float64("pso_c1", 1.49445, "коэффициент C1 (когнитивный)")
		psoC2        = flag.Float64("pso_c2", 1.49445, "коэффициент C2 (социальный)")
		psoVMax      = flag.Float64("pso_vmax", 0.25, "ограничение скорости частицы (0 — без ограничения)")

		// --- Базовые методы ---
		randomSamples = flag.Int("random_samples", 10_000, "количество случайных решений")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cases, err := loadCases(*instances, *pairs, *instanceSeed)
	if err != nil {
		log.Fatal().Err(err).Msg("Конфликт в списке экземпляров")
	}

	eaCfg, err := buildEAConfig(*eaPop, *eaGen, *eaCx, *eaMut, *eaCross, *eaMutation, *eaSel, *eaTour, *eaSelT0, *eaSelAlpha)
	if err != nil {
		log.Fatal().Err(err).Msg("Конфликт в конфигурации эволюционного алгоритма")
	}

	saCfg, err := buildSAConfig(*saIter, *saNeigh, *saNeighbors, *saCooling, *saT0, *saAlpha)
	if err != nil {
		log.Fatal().Err(err).Msg("Конфликт в конфигурации алгоритма имитации отжига")
	}

	tsCfg, err := buildTSConfig(*tsIter, *tsTabu, *tsNeigh, *tsNeighbors)
	if err != nil {
		log.Fatal().Err(err).Msg("Конфликт в конфигурации табу-поиска")
	}

	tssaCfg, err := buildTSSAConfig(*tssaPhases, *tssaInterval, *tssaTabu, *tssaNeigh, *tssaNeighbors, *tssaCooling, *tssaT0, *tssaAlpha)
	if err != nil {
		log.Fatal().Err(err).Msg("Конфликт в конфигурации гибридного алгоритма")
	}

	acoCfg := aco.Config{
		Iterations: *acoIter,
		Ants:       *acoAnts,
		Alpha:      *acoA,
		Beta:       *acoB,
		Rho:        *acoRho,
		Q:          *acoQ,
		Tau0:       *acoTau0,
		CandidateK: *acoCandK,
		Sink:       telemetry.Discard{},
	}
	if err := acoCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Конфликт в конфигурации муравьиного алгоритма")
	}

	psoCfg := pso.DefaultConfig()
	psoCfg.Iterations = *psoIter
	psoCfg.Particles = *psoParticles
	psoCfg.W, psoCfg.C1, psoCfg.C2 = *psoW, *psoC1, *psoC2
	psoCfg.VMax = *psoVMax
	if err := psoCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Конфликт в конфигурации роя частиц")
	}

	if *randomSamples <= 0 {
		log.Fatal().Int("random_samples", *randomSamples).Msg("Количество случайных решений должно быть > 0")
	}

	available := map[string]bench.Algorithm{
		"EA":     {Name: "EA", Factory: newEAFactory(eaCfg)},
		"SA":     {Name: "SA", Factory: newSAFactory(saCfg)},
		"TS":     {Name: "TS", Factory: newTSFactory(tsCfg)},
		"TSSA":   {Name: "TSSA", Factory: newTSSAFactory(tssaCfg)},
		"ACO":    {Name: "ACO", Factory: newACOFactory(acoCfg)},
		"PSO":    {Name: "PSO", Factory: newPSOFactory(psoCfg)},
		"RANDOM": {Name: "RANDOM", Factory: newRandomFactory(*randomSamples)},
		"GREEDY": {Name: "GREEDY", Factory: newGreedyFactory()},
	}

	var selected []bench.Algorithm
	for _, a := range splitCSV(*algos) {
		al, ok := available[strings.ToUpper(a)]
		if !ok {
			log.Fatal().Str("algo", a).Strs("available", keys(available)).Msg("Алгоритм не предоставлен в программе")
		}
		selected = append(selected, al)
	}

	metrics := bench.NewMetrics()
	runner := bench.Runner{
		Runs:          *runs,
		BaseSeed:      *baseSeed,
		Workers:       *workers,
		PerRunTimeout: *perRunTO,
		Sink:          telemetrySinks(*telemetryDir),
		Metrics:       metrics,
	}

	var records []bench.Record
	for _, c := range cases {
		for _, a := range selected {
			log.Info().
				Str("algo", a.Name).
				Str("instance", c.Name).
				Int("dimension", c.Instance.Dimension()).
				Int("runs", runner.Runs).
				Msg("Запущен алгоритм")

			rec, err := runner.RunCase(ctx, c, a)
			if err != nil {
				log.Fatal().Err(err).Msg("Ошибка")
			}
			records = append(records, rec)

			log.Info().
				Str("algo", a.Name).
				Str("instance", c.Name).
				Float64("cost_best", rec.CostBest).
				Float64("cost_mean", rec.CostMean).
				Float64("cost_std", rec.CostStd).
				Float64("time_mean_ms", rec.TimeMeanMs).
				Float64("time_std_ms", rec.TimeStdMs).
				Msg("Длина маршрута")
		}
	}

	if err := bench.WriteCSV(*out, records); err != nil {
		log.Fatal().Err(err).Msg("Ошибка при записи в CSV")
	}
	log.Info().Str("path", *out).Msg("Сохранено")

	if *xlsxOut != "" {
		if err := bench.WriteXLSX(*xlsxOut, records); err != nil {
			log.Fatal().Err(err).Msg("Ошибка при записи в XLSX")
		}
		log.Info().Str("path", *xlsxOut).Msg("Сохранено")
	}

	if *metricsOut != "" {
		if err := metrics.WriteTextfile(*metricsOut); err != nil {
			log.Fatal().Err(err).Msg("Ошибка при записи метрик")
		}
		log.Info().Str("path", *metricsOut).Msg("Сохранено")
	}
}

// конфигурации

func buildEAConfig(pop, gen int, cx, mut float64, crossover, mutation, selector string, tour int, selT0, selAlpha float64) (ea.Config, error) {
	cfg := ea.DefaultConfig()
	cfg.PopulationSize = pop
	cfg.Generations = gen
	cfg.CrossoverProb = cx
	cfg.MutationProb = mut

	switch crossover {
	case "ox":
		cfg.Crossover = ea.OrderedCrossover{}
	case "pmx":
		cfg.Crossover = ea.PartiallyMappedCrossover{}
	default:
		return cfg, fmt.Errorf("неизвестный кроссовер %q", crossover)
	}

	switch mutation {
	case "swap":
		cfg.Mutation = ea.SwapMutation{}
	case "inverse":
		cfg.Mutation = ea.InverseMutation{}
	default:
		return cfg, fmt.Errorf("неизвестная мутация %q", mutation)
	}

	switch selector {
	case "tournament":
		sel, err := ea.NewTournament(tour)
		if err != nil {
			return cfg, err
		}
		cfg.Selector = sel
	case "roulette":
		cfg.Selector = ea.Roulette{}
	case "annealed":
		sel, err := ea.NewAnnealedRoulette(selT0, selAlpha)
		if err != nil {
			return cfg, err
		}
		cfg.Selector = sel
	default:
		return cfg, fmt.Errorf("неизвестная селекция %q", selector)
	}

	return cfg, cfg.Validate()
}

func buildSAConfig(iter int, neigh string, size int, cooling string, t0, alpha float64) (sa.Config, error) {
	cfg := sa.DefaultConfig()
	cfg.Iterations = iter

	op, err := neighbor.New(neighbor.Kind(neigh), size)
	if err != nil {
		return cfg, err
	}
	cfg.Neighbors = op

	cs, err := buildCooling(cooling, t0, alpha, iter)
	if err != nil {
		return cfg, err
	}
	cfg.Cooling = cs

	return cfg, cfg.Validate()
}

func buildTSConfig(iter, tabu int, neigh string, size int) (ts.Config, error) {
	cfg := ts.DefaultConfig()
	cfg.Iterations = iter
	cfg.TabuSize = tabu

	op, err := neighbor.New(neighbor.Kind(neigh), size)
	if err != nil {
		return cfg, err
	}
	cfg.Neighbors = op

	return cfg, cfg.Validate()
}

func buildTSSAConfig(phases, interval, tabu int, neigh string, size int, cooling string, t0, alpha float64) (tssa.Config, error) {
	cfg := tssa.DefaultConfig()
	cfg.Iterations = phases
	cfg.SwitchInterval = interval
	cfg.TabuSize = tabu

	op, err := neighbor.New(neighbor.Kind(neigh), size)
	if err != nil {
		return cfg, err
	}
	cfg.Neighbors = op

	// линейное охлаждение рассчитано только на итерации фаз отжига
	cs, err := buildCooling(cooling, t0, alpha, (phases/2)*interval)
	if err != nil {
		return cfg, err
	}
	cfg.Cooling = cs

	return cfg, cfg.Validate()
}

func buildCooling(kind string, t0, alpha float64, iterations int) (sa.CoolingSchedule, error) {
	switch kind {
	case "exponential":
		e, err := sa.NewExponential(t0, alpha)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "linear":
		l, err := sa.NewLinear(max(1, iterations))
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("неизвестное охлаждение %q", kind)
	}
}

// телеметрия

// fileSink закрывает файл после сброса; каждый решатель сбрасывает телеметрию один раз.
type fileSink struct {
	telemetry.Sink
	f *os.File
}

func (s fileSink) Flush() (int, error) {
	n, err := s.Sink.Flush()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func telemetrySinks(dir string) func(algo, instance string, trial int) telemetry.Sink {
	debug := zerolog.GlobalLevel() <= zerolog.DebugLevel
	if dir == "" && !debug {
		return nil
	}

	return func(algo, instance string, trial int) telemetry.Sink {
		var sinks telemetry.Multi
		if debug {
			sinks = append(sinks, telemetry.NewZerolog(log.Logger))
		}
		if dir != "" {
			path := filepath.Join(dir, fmt.Sprintf("%s_%s_%03d.tsv", algo, instance, trial))
			f, err := createFile(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("Телеметрия запуска не будет записана")
			} else {
				sinks = append(sinks, fileSink{Sink: telemetry.NewCSV(f), f: f})
			}
		}
		return sinks
	}
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// helpers

func loadCases(paths, pairs string, baseInstanceSeed int64) ([]bench.Case, error) {
	var cases []bench.Case
	for _, p := range splitCSV(paths) {
		inst, err := cvrp.Load(p)
		if err != nil {
			return nil, err
		}
		name := inst.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		cases = append(cases, bench.Case{Name: name, Instance: inst})
	}
	if len(cases) > 0 {
		return cases, nil
	}
	return parsePairs(pairs, baseInstanceSeed)
}

func parsePairs(s string, baseInstanceSeed int64) ([]bench.Case, error) {
	parts := splitCSV(s)
	cases := make([]bench.Case, 0, len(parts))

	for i, p := range parts {
		nc := strings.Split(p, "x")
		if len(nc) != 2 {
			return nil, fmt.Errorf("пара %q невалидной схемы, пример: 32x100", p)
		}
		n, err := atoiStrict(nc[0])
		if err != nil {
			return nil, fmt.Errorf("пара %q: ошибка парсинга количества узлов: %w", p, err)
		}
		capacity, err := atoiStrict(nc[1])
		if err != nil {
			return nil, fmt.Errorf("пара %q: ошибка парсинга вместимости: %w", p, err)
		}
		if n < 2 || capacity <= 0 {
			return nil, fmt.Errorf("пара %q: нужно не меньше 2 узлов и вместимость > 0", p)
		}

		seed := baseInstanceSeed + int64(i)*10_000 + int64(n)*100 + int64(capacity)
		cases = append(cases, bench.RandomCase(n, capacity, seed))
	}

	return cases, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoiStrict(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func keys(m map[string]bench.Algorithm) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
