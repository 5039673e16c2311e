// 手动导入测评题库脚本
//
// 主程序也支持 -seed 参数在启动时导入，此脚本用于只导入数据、不启动服务的场景。
//
// 用法: go run scripts/seed_tests.go -file configs/seed.example.yaml

package main

import (
	"aptitude_backend/internal/config"
	"aptitude_backend/internal/repository"
	"aptitude_backend/internal/seed"
	"aptitude_backend/pkg/database"
	"aptitude_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"time"
)

func main() {
	file := flag.String("file", "configs/seed.example.yaml", "YAML 题库文件")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Printf("导入题库 %s ...", *file)
	n, err := seed.LoadFile(ctx, repository.NewAptitudeTestRepository(db), *file)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Printf("完成！共导入 %d 套试卷", n)
}
