package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	}
}

// FindLatestManifest ищет самый свежий YAML-манифест истории в папке.
func FindLatestManifest(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := strings.ToLower(f.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено манифестов (.yaml)", dir)
	}
	return latestFile, nil
}

// FFmpegProber кэширует списки поддерживаемых кодеков и контейнеров.
type FFmpegProber struct {
	once     sync.Once
	encoders string
	muxers   string
}

func (p *FFmpegProber) load() {
	p.once.Do(func() {
		if out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput(); err == nil {
			p.encoders = string(out)
		}
		if out, err := exec.Command("ffmpeg", "-hide_banner", "-muxers").CombinedOutput(); err == nil {
			p.muxers = string(out)
		}
	})
}

func (p *FFmpegProber) HasEncoder(name string) bool {
	p.load()
	return strings.Contains(p.encoders, " "+name+" ")
}

func (p *FFmpegProber) HasMuxer(name string) bool {
	p.load()
	return strings.Contains(p.muxers, " "+name+" ")
}

// GetBestH264Encoder выбирает аппаратный энкодер, если он доступен.
// Приоритеты: VideoToolbox (macOS), NVENC (NVIDIA), иначе libx264.
func GetBestH264Encoder(p *FFmpegProber) string {
	for _, enc := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if p.HasEncoder(enc) {
			return enc
		}
	}
	return "libx264"
}

// PrefetchWorkers ограничивает параллельную предзагрузку ассетов: не больше
// ядер, не больше страниц и не больше, чем позволяет доступная память
// (каждая страница в полёте держит декодированную иллюстрацию и PCM-буфер).
func PrefetchWorkers(pageCount, frameWidth, frameHeight int) int {
	workers := runtime.NumCPU()
	if workers > pageCount {
		workers = pageCount
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		perPage := uint64(frameWidth*frameHeight*4) * 3
		if perPage > 0 {
			if budget := int(vm.Available / 2 / perPage); budget < workers {
				workers = budget
			}
		}
	}

	if workers < 1 {
		workers = 1
	}
	return workers
}
