package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ivlev/segment2video/internal/config"
	"github.com/ivlev/segment2video/internal/engine"
	"github.com/ivlev/segment2video/internal/script"
	"github.com/ivlev/segment2video/internal/segment"
	"github.com/ivlev/segment2video/internal/source"
	"github.com/ivlev/segment2video/internal/system"
)

var BuildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/audio", "input/images", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	flag.String("config", "", "YAML-файл конфигурации (значения флагов имеют приоритет)")
	flag.StringVar(&cfg.InputPath, "input", cfg.InputPath, "Папка с фотографиями <id>.jpeg|png или PDF (страницы page-N)")
	flag.StringVar(&cfg.MaskDir, "masks", cfg.MaskDir, "Папка с масками <id>-mask.png (по умолчанию: папка input)")
	ids := flag.String("ids", strings.Join(cfg.IDs, ","), "Идентификаторы слотов через запятую, по порядку")
	flag.StringVar(&cfg.ScriptPath, "script", cfg.ScriptPath, "YAML-сценарий (по умолчанию: встроенный эталонный)")
	flag.StringVar(&cfg.DumpScript, "dump-script", cfg.DumpScript, "Сохранить эталонный сценарий в YAML и выйти")
	flag.StringVar(&cfg.OutputVideo, "output", cfg.OutputVideo, "Путь к видео (если пусто, генерируется автоматически в output/)")
	flag.StringVar(&cfg.AudioPath, "audio", cfg.AudioPath, "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	flag.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Папка для промежуточного видео")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "Ширина холста")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "Высота холста")
	flag.IntVar(&cfg.EncodeWidth, "encode-width", cfg.EncodeWidth, "Ширина видео")
	flag.IntVar(&cfg.EncodeHeight, "encode-height", cfg.EncodeHeight, "Высота видео")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "FPS")
	flag.Float64Var(&cfg.Hold, "hold", cfg.Hold, "Сколько секунд держать последний кадр")
	flag.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI для PDF")
	flag.StringVar(&cfg.PixelFormat, "pixel-format", cfg.PixelFormat, "Порядок каналов для энкодера: rgba, bgra, argb")
	flag.IntVar(&cfg.Quality, "quality", cfg.Quality, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Потоки сегментации")
	flag.IntVar(&cfg.QueueDepth, "queue", cfg.QueueDepth, "Глубина очереди кадров перед энкодером")
	strict := flag.Bool("strict", cfg.MissingPolicy == string(script.PolicyStrict), "Прерывать запуск при первом пропущенном слоте")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "QR-метка с номером кадра и pts на каждом кадре")
	flag.BoolVar(&cfg.ShowStats, "stats", cfg.ShowStats, "Показать отчёт о производительности")
	flag.StringVar(&cfg.Segmenter, "segmenter", cfg.Segmenter, "Команда сегментации: <cmd> <input.png> <mask.png>, или contrast (встроенный детектор)")
	flag.StringVar(&cfg.FFmpeg, "ffmpeg", cfg.FFmpeg, "Путь к ffmpeg")

	flag.Parse()

	cfg.IDs = config.SplitIDs(*ids)
	cfg.MissingPolicy = string(script.PolicySkip)
	if *strict {
		cfg.MissingPolicy = string(script.PolicyStrict)
	}
	cfg.BuildVersion = BuildVersion

	if cfg.DumpScript != "" {
		if err := script.WriteScript(script.Reference(), cfg.DumpScript); err != nil {
			log.Fatalf("[-] Ошибка записи сценария: %v", err)
		}
		fmt.Printf("[+++] Успех! Сценарий сохранен: %s\n", cfg.DumpScript)
		return
	}

	steps := script.Reference()
	if cfg.ScriptPath != "" {
		steps, err = script.ReadScript(cfg.ScriptPath)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения сценария: %v", err)
		}
		fmt.Printf("[*] Используется сценарий: %s\n", cfg.ScriptPath)
	}

	if cfg.AudioPath == "" {
		if latest, err := system.FindLatest("input/audio", system.AudioExtensions...); err == nil {
			cfg.AudioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", cfg.AudioPath)
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] %v", err)
	}
	if err := system.CheckTools(cfg.FFmpeg); err != nil {
		log.Fatalf("[-] %v", err)
	}

	var src source.Source
	isPDF := strings.HasSuffix(strings.ToLower(cfg.InputPath), ".pdf")
	if isPDF {
		src, err = source.NewFitzPDFSource(cfg.InputPath, cfg.DPI)
	} else {
		src, err = source.NewImageSource(cfg.InputPath)
	}
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации источника: %v", err)
	}
	defer src.Close()

	if isPDF && slices.Equal(cfg.IDs, config.DefaultIDs) {
		cfg.IDs = src.Identifiers()
		fmt.Printf("[*] Слоты из страниц PDF: %d\n", len(cfg.IDs))
	}

	maskDir := cfg.MaskDir
	if maskDir == "" && !isPDF {
		maskDir = cfg.InputPath
	}

	if cfg.OutputVideo == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		cfg.OutputVideo = filepath.Join("output", fmt.Sprintf("segment2video_%s.mp4", timestamp))
	}

	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder = system.GetBestH264Encoder()
		if cfg.VideoEncoder != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
		}
	}

	provider := &segment.MaskProvider{
		Source:    src,
		MaskDir:   maskDir,
		Segmenter: cfg.Segmenter,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	project := engine.NewVideoProject(cfg, provider, steps)
	res := project.Run(ctx)
	if !res.OK() {
		stop()
		src.Close()
		log.Fatalf("[-] Ошибка проекта: %v", res)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", res.Output)
}
