package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ivlev/story2video/internal/audio"
	"github.com/ivlev/story2video/internal/capture"
	"github.com/ivlev/story2video/internal/config"
	"github.com/ivlev/story2video/internal/engine"
	"github.com/ivlev/story2video/internal/format"
	"github.com/ivlev/story2video/internal/source"
	"github.com/ivlev/story2video/internal/story"
	"github.com/ivlev/story2video/internal/system"
)

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/stories", "input/art", "input/voice", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	storyPtr := flag.String("story", "", "Путь к YAML-манифесту истории (по умолчанию: самый свежий файл в input/stories/)")
	artPtr := flag.String("art", "", "Путь к папке с иллюстрациями или PDF-книге (для страниц без явного пути)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, имя выводится из заголовка в output/)")
	presetPtr := flag.String("preset", "16:9", "Формат: 16:9 (альбомный), 9:16 (портретный)")
	fpsPtr := flag.Int("fps", 30, "FPS")
	padPtr := flag.Int("pad", audio.DefaultPadMs, "Пауза после озвучки страницы (мс)")
	fallbackPtr := flag.Int("fallback", audio.DefaultFallbackMs, "Длительность страницы без озвучки (мс)")
	titlePtr := flag.Int("title-ms", 3000, "Длительность титульного кадра (мс)")
	sharePtr := flag.String("share-url", "", "Ссылка для QR-кода на титульном кадре")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	dpiPtr := flag.Int("dpi", 150, "DPI рендеринга PDF-иллюстраций")
	yesPtr := flag.Bool("yes", false, "Не спрашивать подтверждение при страницах без озвучки")
	statsPtr := flag.Bool("stats", false, "Показать отчёт после экспорта")

	flag.Parse()

	// Ctrl+C завершает экспорт кооперативно: пишется усечённый, но
	// корректный файл.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := format.Parse(*presetPtr)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	geo := f.Geometry()

	manifestPath := *storyPtr
	if manifestPath == "" {
		latest, err := system.FindLatestManifest("input/stories")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите манифест в input/stories/", err)
		}
		manifestPath = latest
		fmt.Printf("[*] Выбран манифест: %s\n", manifestPath)
	}

	manifest, err := story.ReadManifest(manifestPath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения манифеста: %v", err)
	}
	st := manifest.Story()
	if *sharePtr != "" {
		st.ShareURL = *sharePtr
	}

	var src source.IllustrationSource
	if *artPtr != "" {
		if strings.HasSuffix(strings.ToLower(*artPtr), ".pdf") {
			src, err = source.NewFitzPDFSource(*artPtr, float64(*dpiPtr))
		} else {
			src, err = source.NewImageDirSource(*artPtr)
		}
		if err != nil {
			log.Fatalf("[-] Ошибка источника иллюстраций: %v", err)
		}
		defer src.Close()
	}

	fmt.Println("--- [STORY2VIDEO] ---")
	fmt.Printf("[*] История: %s | Страниц: %d\n", st.Title, len(st.Pages))
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS\n", geo.Width, geo.Height, *fpsPtr)
	fmt.Println("---------------------")

	workers := system.PrefetchWorkers(len(st.Pages), geo.Width, geo.Height)
	err = story.Prefetch(ctx, st, story.PrefetchOptions{
		Source:  src,
		BaseDir: filepath.Dir(manifestPath),
		Workers: workers,
	})
	if err != nil {
		log.Fatalf("[-] Ошибка предзагрузки ассетов: %v", err)
	}

	prober := &system.FFmpegProber{}
	encoderName := system.GetBestH264Encoder(prober)
	if encoderName != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
	}

	quality := *qualityPtr
	if quality == 0 {
		switch encoderName {
		case "h264_videotoolbox":
			quality = 75
		case "h264_nvenc":
			quality = 28
		default:
			quality = 23
		}
	}

	cfg := &config.Config{
		ManifestPath: manifestPath,
		AssetsPath:   *artPtr,
		OutputVideo:  *outputPtr,
		Preset:       *presetPtr,
		FPS:          *fpsPtr,
		PadMs:        *padPtr,
		FallbackMs:   *fallbackPtr,
		TitleMs:      *titlePtr,
		ShareURL:     st.ShareURL,
		Workers:      workers,
		VideoEncoder: encoderName,
		Quality:      quality,
		AssumeYes:    *yesPtr,
		ShowStats:    *statsPtr,
	}

	project := &engine.ExportProject{
		Config: cfg,
		Story:  st,
		Format: f,
		NewSession: engine.DefaultSessionFactory(prober, encoderName, capture.Params{
			Width:   geo.Width,
			Height:  geo.Height,
			FPS:     cfg.FPS,
			Quality: cfg.Quality,
		}),
		Progress: func(status string, current, total int) {
			fmt.Printf("[>] %s\n", status)
		},
		Confirm: func(missing []int) bool {
			return confirmPartial(missing, cfg.AssumeYes)
		},
	}

	blob, name, err := project.Run(ctx)
	if err != nil {
		log.Fatalf("[-] Ошибка экспорта: %v", err)
	}

	finalOutput := cfg.OutputVideo
	if finalOutput == "" {
		finalOutput = filepath.Join("output", name)
	}
	if err := os.WriteFile(finalOutput, blob.Data, 0644); err != nil {
		log.Fatalf("[-] Не удалось записать файл: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s (%s, %d байт)\n", finalOutput, blob.MimeType, len(blob.Data))
}

// confirmPartial спрашивает пользователя, продолжать ли без озвучки части
// страниц. Это решение пользователя, а не автоматический ретрай: генерация
// озвучки живёт вне экспортёра.
func confirmPartial(missing []int, assumeYes bool) bool {
	pages := make([]string, len(missing))
	for i, idx := range missing {
		pages[i] = fmt.Sprintf("%d", idx+1)
	}
	fmt.Printf("[!] Без озвучки страницы: %s\n", strings.Join(pages, ", "))

	if assumeYes {
		fmt.Println("[*] Продолжаем без озвучки (-yes)")
		return true
	}

	fmt.Print("[?] Продолжить без озвучки этих страниц? [y/N]: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes" || answer == "д" || answer == "да"
}
